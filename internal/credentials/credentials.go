package credentials

import (
	"context"

	"github.com/example/teetime-sniper/internal/crypto"
	"github.com/example/teetime-sniper/internal/db"
)

// Credentials is a named booking-site login. The password is stored
// encrypted; plaintext only exists in memory on the way to the login form.
type Credentials struct {
	Name     string
	Username string
	Password string
}

type Repo struct {
	db   *db.DB
	aead *crypto.AEAD
}

func NewRepo(d *db.DB, aead *crypto.AEAD) *Repo {
	return &Repo{db: d, aead: aead}
}

func (r *Repo) Set(ctx context.Context, c Credentials) error {
	enc, err := r.aead.EncryptToString(c.Password)
	if err != nil {
		return err
	}
	return r.db.Exec(ctx, `
INSERT INTO credentials(name,username,password) VALUES ($1,$2,$3)
ON CONFLICT (name) DO UPDATE SET username=EXCLUDED.username, password=EXCLUDED.password`,
		c.Name, c.Username, enc)
}

func (r *Repo) Get(ctx context.Context, name string) (Credentials, error) {
	var c Credentials
	var enc string
	err := r.db.QueryRow(ctx, `SELECT name,username,password FROM credentials WHERE name=$1`, name).
		Scan(&c.Name, &c.Username, &enc)
	if err != nil {
		return Credentials{}, db.WrapNotFound(err)
	}
	c.Password, err = r.aead.DecryptString(enc)
	if err != nil {
		return Credentials{}, err
	}
	return c, nil
}

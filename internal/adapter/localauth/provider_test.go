package localauth_test

import (
	"context"
	"errors"
	"testing"

	"earnlog/internal/adapter/localauth"
	"earnlog/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func TestSignInWithCredential(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	p := localauth.New("worker", "s3cret", string(hash))
	identity, err := p.SignIn(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity != "worker" {
		t.Errorf("identity = %s; want worker", identity)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	p := localauth.New("worker", "wrong", string(hash))
	if _, err := p.SignIn(context.Background()); !errors.Is(err, localauth.ErrBadCredentials) {
		t.Errorf("err = %v; want ErrBadCredentials", err)
	}
}

func TestAnonymousIdentityIsStable(t *testing.T) {
	p := localauth.NewAnonymous()

	first, err := p.SignIn(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == "" {
		t.Fatal("anonymous identity must not be empty")
	}

	second, err := p.SignIn(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("identity changed between sign-ins: %s then %s", first, second)
	}
}

func TestOnIdentityChanged(t *testing.T) {
	p := localauth.NewAnonymous()

	var seen domain.Identity
	cancel := p.OnIdentityChanged(func(identity domain.Identity) { seen = identity })
	defer cancel()

	identity, err := p.SignIn(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != identity {
		t.Errorf("listener saw %s; want %s", seen, identity)
	}

	cancel()
	seen = ""
	if _, err := p.SignIn(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "" {
		t.Error("cancelled listener still notified")
	}
}

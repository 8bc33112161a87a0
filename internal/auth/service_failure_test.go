package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wkoster/smhconnect/internal/auth"
	"github.com/wkoster/smhconnect/internal/errorz/testerr"
)

// failingStore implements auth.Store but fails calls as dictated by the
// provided FailingDep. It tracks rollbacks so tests can check that failed
// transactions are not left dangling.
type failingStore struct {
	dep       *testerr.FailingDep
	rollbacks int
}

func (s *failingStore) BeginTx(_ context.Context) (auth.Tx, error) {
	return testerr.MaybeFail(s.dep, func() (auth.Tx, error) {
		return &failingTx{store: s}, nil
	})
}

type failingTx struct {
	store *failingStore
}

func (t *failingTx) Commit() error {
	return testerr.MaybeFailErrFunc(t.store.dep, func() error {
		return nil
	})
}

func (t *failingTx) Rollback() error {
	t.store.rollbacks++
	return nil
}

func (t *failingTx) CreateUser(_ *auth.User) error {
	return testerr.MaybeFailErrFunc(t.store.dep, func() error {
		return nil
	})
}

func (t *failingTx) UpdateUser(_ *auth.User) error {
	return testerr.MaybeFailErrFunc(t.store.dep, func() error {
		return nil
	})
}

func (t *failingTx) DeleteUser(_ uuid.UUID) error {
	return testerr.MaybeFailErrFunc(t.store.dep, func() error {
		return nil
	})
}

func (t *failingTx) FindUsers(_ *auth.UserFilter) ([]auth.User, error) {
	return testerr.MaybeFail(t.store.dep, func() ([]auth.User, error) {
		return nil, nil
	})
}

func Test_Service_RegisterUser_FailingStore(t *testing.T) {
	ctx := context.Background()
	failErr := errors.New("store failed")

	// RegisterUser makes these calls on the store:
	// BeginTx, FindUsers, CreateUser, Commit.
	for i, dep := range testerr.NewFailingDeps(failErr, 4) {
		t.Run(fmt.Sprintf("fail, store error in call %d", i), func(t *testing.T) {
			store := &failingStore{dep: &dep}

			svc, err := auth.NewService(store, testTokens(t, time.Hour))
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			_, err = svc.RegisterUser(ctx, testRegistration(t, "Jacky", "jacky@example.com", "reallyStrongPassword1"))
			if !errors.Is(err, failErr) {
				t.Errorf("expected %v, but got %v (via errors.Is)", failErr, err)
			}
		})
	}
}

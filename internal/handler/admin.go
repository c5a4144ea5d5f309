package handler

import (
	"context"
	"errors"

	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/server/authctx"
)

var errNoProgram = errors.New("no program configured for this account")

// resolveProgramID picks the program an authenticated owner or staff user
// operates on. Staff carry it in their token claims; owners who registered
// before creating a program fall back to ownership lookup.
func resolveProgramID(ctx context.Context, programs repository.ProgramRepository, u *authctx.CurrentUser) (int64, error) {
	if u == nil {
		return 0, errNoProgram
	}
	if u.ProgramID != nil {
		return *u.ProgramID, nil
	}
	prog, err := programs.GetByOwner(ctx, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, errNoProgram
		}
		return 0, err
	}
	return prog.ID, nil
}

package domain

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusUnwrapsWrappedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bare sentinel", ErrPasteNotFound, http.StatusNotFound},
		{"wrapped sentinel", errors.Wrap(ErrContentRequired, "create"), http.StatusBadRequest},
		{"double wrapped", errors.Wrap(errors.Wrap(ErrPasswordRequired, "gate"), "get"), http.StatusUnauthorized},
		{"foreign error", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestToRespHidesInternalDetail(t *testing.T) {
	resp := ToResp(errors.Wrap(ErrIDCollision, "insert"))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)

	resp = ToResp(errors.Wrap(ErrContentRequired, "create"))
	assert.Equal(t, "CONTENT_REQUIRED", resp.Error.Code)
	assert.Equal(t, "Paste content cannot be empty!", resp.Error.Msg)
}

func TestVariant(t *testing.T) {
	assert.True(t, VariantSimple.Valid())
	assert.True(t, VariantAdvanced.Valid())
	assert.False(t, Variant("fancy").Valid())
	assert.False(t, VariantSimple.HasLanguage())
	assert.True(t, VariantAdvanced.HasLanguage())
	assert.Equal(t, "pastes_simple.db", VariantSimple.DefaultDBPath())
	assert.Equal(t, "pastes_advanced.db", VariantAdvanced.DefaultDBPath())
	assert.True(t, KnownLanguage("python"))
	assert.False(t, KnownLanguage("brainfuck"))
}

func TestPasteProtected(t *testing.T) {
	empty := ""
	secret := "abc"
	assert.False(t, (&Paste{}).Protected())
	assert.False(t, (&Paste{Password: &empty}).Protected())
	assert.True(t, (&Paste{Password: &secret}).Protected())
}

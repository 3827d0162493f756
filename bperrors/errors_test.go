package bperrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindFatal(t *testing.T) {
	assert.True(t, ProtocolDesync.Fatal())
	assert.True(t, InvalidPolicy.Fatal())
	assert.True(t, WrongRole.Fatal())
	assert.False(t, TransientPlatform.Fatal())
	assert.False(t, PlatformClipped.Fatal())
}

func TestIsFatal(t *testing.T) {
	fatal := New(ProtocolDesync, "step counters disagree")
	assert.True(t, IsFatal(fatal))

	recovered := New(TransientPlatform, "read failed")
	assert.False(t, IsFatal(recovered))

	assert.False(t, IsFatal(errors.New("plain error")))
}

func TestKindOf(t *testing.T) {
	err := New(InvalidPolicy, "all-zero policy")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, InvalidPolicy, kind)

	_, ok = KindOf(errors.New("plain error"))
	assert.False(t, ok)
}

func TestWrapAndContext(t *testing.T) {
	cause := errors.New("ssh dial failed")
	err := Wrap(TransientPlatform, cause, "reading EPOCH_RUNTIME").
		WithContext("leaf", 1, map[string]interface{}{"package": 0})

	assert.Contains(t, err.Error(), "TransientPlatform")
	assert.Contains(t, err.Error(), "role=leaf")
	assert.Contains(t, err.Error(), "step=1")
	assert.ErrorIs(t, err, cause)
}

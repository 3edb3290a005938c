package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndicator(t *testing.T) {
	ind := NewIndicator()
	assert.False(t, ind.Active())

	doneA := ind.Start("add 1")
	doneB := ind.Start("restore cart")
	assert.True(t, ind.Active())
	assert.Equal(t, []string{"add 1", "restore cart"}, ind.Labels())

	doneA()
	doneA()
	assert.True(t, ind.Active(), "double release must not remove other work")
	assert.Equal(t, []string{"restore cart"}, ind.Labels())

	doneB()
	assert.False(t, ind.Active())
}

func TestIndicator_ReleasedOnErrorPath(t *testing.T) {
	ind := NewIndicator()

	fetch := func() error {
		done := ind.Start("fetch")
		defer done()
		return errors.New("network down")
	}

	assert.Error(t, fetch())
	assert.False(t, ind.Active())
}

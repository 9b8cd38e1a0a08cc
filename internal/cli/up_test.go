package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	found     bool
	detectErr error
	repo      string
	updated   bool
}

func (f *fakeUpdater) DetectLatest(_ context.Context, repo selfupdate.Repository) (*selfupdate.Release, bool, error) {
	owner, name, _ := repo.GetSlug()
	f.repo = owner + "/" + name
	return nil, f.found, f.detectErr
}

func (f *fakeUpdater) UpdateTo(context.Context, *selfupdate.Release, string) error {
	f.updated = true
	return nil
}

func runUp(t *testing.T, fake *fakeUpdater, newErr error) error {
	t.Helper()
	c := New("v0.1.0")
	c.out = &bytes.Buffer{}
	c.newUpdater = func() (updater, error) {
		if newErr != nil {
			return nil, newErr
		}
		return fake, nil
	}
	c.rootCmd.SetArgs([]string{"up", "-s"})
	return c.rootCmd.Execute()
}

func TestUpNoRelease(t *testing.T) {
	fake := &fakeUpdater{}
	err := runUp(t, fake, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no release found")
	assert.Equal(t, repoSlug, fake.repo)
	assert.False(t, fake.updated)
}

func TestUpDetectError(t *testing.T) {
	boom := errors.New("rate limited")
	fake := &fakeUpdater{detectErr: boom}
	err := runUp(t, fake, nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, fake.updated)
}

func TestUpUpdaterError(t *testing.T) {
	boom := errors.New("no token")
	err := runUp(t, &fakeUpdater{}, boom)
	assert.ErrorIs(t, err, boom)
}

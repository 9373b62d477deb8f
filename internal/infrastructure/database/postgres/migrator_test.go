package postgres

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/MallLedger/pkg/errors"
)

type fakeMigrate struct {
	upErr      error
	stepsErr   error
	steps      int
	version    uint
	dirty      bool
	versionErr error
	forced     int
	closed     bool
}

func (f *fakeMigrate) Up() error                    { return f.upErr }
func (f *fakeMigrate) Steps(n int) error            { f.steps = n; return f.stepsErr }
func (f *fakeMigrate) Version() (uint, bool, error) { return f.version, f.dirty, f.versionErr }
func (f *fakeMigrate) Force(v int) error            { f.forced = v; return nil }
func (f *fakeMigrate) Close() (error, error)        { f.closed = true; return nil, nil }

func newTestMigrator(f *fakeMigrate) (*Migrator, *string) {
	m := NewMigrator("migrations", "postgres://u:p@localhost:5432/mall")
	var source string
	m.newFn = func(src, db string) (migrator, error) {
		source = src
		return f, nil
	}
	return m, &source
}

func TestMigrator_UpNoChange(t *testing.T) {
	f := &fakeMigrate{upErr: migrate.ErrNoChange}
	m, source := newTestMigrator(f)

	require.NoError(t, m.Up())
	assert.Equal(t, "file://migrations", *source)
	assert.True(t, f.closed)
}

func TestMigrator_UpFailure(t *testing.T) {
	m, _ := newTestMigrator(&fakeMigrate{upErr: errors.New("syntax error")})
	err := m.Up()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func TestMigrator_Down(t *testing.T) {
	f := &fakeMigrate{}
	m, _ := newTestMigrator(f)

	require.NoError(t, m.Down(2))
	assert.Equal(t, -2, f.steps)

	err := m.Down(0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
}

func TestMigrator_Status(t *testing.T) {
	m, _ := newTestMigrator(&fakeMigrate{version: 1, dirty: true})
	st, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, MigrationState{Version: 1, Dirty: true}, st)

	m, _ = newTestMigrator(&fakeMigrate{versionErr: migrate.ErrNilVersion})
	st, err = m.Status()
	require.NoError(t, err)
	assert.Zero(t, st.Version)
}

func TestMigrator_Force(t *testing.T) {
	f := &fakeMigrate{}
	m, _ := newTestMigrator(f)
	require.NoError(t, m.Force(1))
	assert.Equal(t, 1, f.forced)
}

func TestMigrator_OpenFailure(t *testing.T) {
	m := NewMigrator("file:///nowhere", "postgres://localhost/mall")
	m.newFn = func(src, db string) (migrator, error) { return nil, errors.New("no such dir") }
	_, err := m.Status()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

//Personal.AI order the ending

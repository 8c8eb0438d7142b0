package property

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

type Audit struct {
	CreatedBy string
	Revision  int
}

type Account struct {
	ID       int64
	Name     string
	Nickname *string
	Audit
	balance  int64
	nickname string
	secret   string
	visits   int
}

func (a *Account) GetBalance() int64 { return a.balance }

func (a *Account) SetBalance(v int64) error {
	if v < 0 {
		return errors.New("negative balance")
	}
	a.balance = v
	return nil
}

// accessor-only, read-only
func (a *Account) GetDisplayName() string { return "<" + a.Name + ">" }

// accessor-only, write-only
func (a *Account) SetNote(note string) { a.nickname = note }

func (a *Account) Visits() int { return a.visits }

func (a *Account) PropertyTags() map[string]string {
	return map[string]string{"DisplayName": `db:"display_name"`}
}

func discover(t *testing.T, logger *zap.Logger) *Properties {
	t.Helper()
	ps, err := NewRegistry(logger).Of(&Account{})
	require.NoError(t, err)
	return ps
}

func TestDiscover_Properties(t *testing.T) {
	ps := discover(t, nil)

	assert.Equal(t, []string{"ID", "Name", "Nickname", "Balance", "Visits", "CreatedBy", "Revision", "DisplayName", "Note"}, ps.Names())
	assert.Equal(t, 9, ps.Len())

	_, ok := ps.Get("Secret")
	assert.False(t, ok, "unexported field without accessors is not a property")
}

func TestDiscover_Accessors(t *testing.T) {
	ps := discover(t, nil)

	balance, ok := ps.Get("Balance")
	require.True(t, ok)
	assert.True(t, balance.HasGetter())
	assert.True(t, balance.HasSetter())
	assert.True(t, balance.CanRead())
	assert.True(t, balance.CanWrite())

	visits, _ := ps.Get("Visits")
	assert.True(t, visits.HasGetter())
	assert.True(t, visits.ReadOnly())

	display, _ := ps.Get("DisplayName")
	assert.Nil(t, display.Field())
	assert.True(t, display.ReadOnly())
	column, ok := display.Tag("db")
	assert.True(t, ok)
	assert.Equal(t, "display_name", column)

	note, _ := ps.Get("Note")
	assert.False(t, note.CanRead())
	assert.True(t, note.CanWrite())
}

func TestDiscover_NonStruct(t *testing.T) {
	_, err := NewRegistry(nil).Of(42)
	require.Error(t, err)
	assert.True(t, ormerrors.IsConfiguration(err))

	_, err = NewRegistry(nil).Discover(nil)
	assert.True(t, ormerrors.IsConfiguration(err))
}

func TestDiscover_Cached(t *testing.T) {
	r := NewRegistry(nil)

	first, err := r.Of(Account{})
	require.NoError(t, err)
	second, err := r.Of(&Account{})
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestProperty_GetSet(t *testing.T) {
	ps := discover(t, nil)
	account := &Account{ID: 1, Name: "ada", balance: 10, visits: 3, Audit: Audit{CreatedBy: "root"}}

	name, _ := ps.Get("Name")
	v, err := name.Get(account)
	require.NoError(t, err)
	assert.Equal(t, "ada", v)

	require.NoError(t, name.Set(account, "grace"))
	assert.Equal(t, "grace", account.Name)

	balance, _ := ps.Get("Balance")
	v, err = balance.Get(account)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)

	require.NoError(t, balance.Set(account, int64(25)))
	assert.Equal(t, int64(25), account.balance)

	createdBy, _ := ps.Get("CreatedBy")
	v, err = createdBy.Get(account)
	require.NoError(t, err)
	assert.Equal(t, "root", v)
	require.NoError(t, createdBy.Set(account, "admin"))
	assert.Equal(t, "admin", account.CreatedBy)

	display, _ := ps.Get("DisplayName")
	v, err = display.Get(*account)
	require.NoError(t, err)
	assert.Equal(t, "<grace>", v)
}

func TestProperty_SetterError(t *testing.T) {
	ps := discover(t, nil)
	balance, _ := ps.Get("Balance")

	err := balance.Set(&Account{}, int64(-1))
	require.Error(t, err)
	assert.True(t, ormerrors.IsAccess(err))
	assert.Contains(t, err.Error(), "negative balance")
}

func TestProperty_SetPointerCoercion(t *testing.T) {
	ps := discover(t, nil)
	account := &Account{}
	nickname, _ := ps.Get("Nickname")

	require.NoError(t, nickname.Set(account, "ace"))
	require.NotNil(t, account.Nickname)
	assert.Equal(t, "ace", *account.Nickname)

	require.NoError(t, nickname.Set(account, nil))
	assert.Nil(t, account.Nickname)

	name, _ := ps.Get("Name")
	value := "deref"
	require.NoError(t, name.Set(account, &value))
	assert.Equal(t, "deref", account.Name)
}

func TestProperty_SetTypeMismatch(t *testing.T) {
	ps := discover(t, nil)
	name, _ := ps.Get("Name")

	err := name.Set(&Account{}, 12)
	require.Error(t, err)
	assert.True(t, ormerrors.IsAccess(err))
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestProperty_SetReadOnlyIsIgnored(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ps := discover(t, zap.New(core))
	account := &Account{visits: 4}

	visits, _ := ps.Get("Visits")
	require.NoError(t, visits.Set(account, 9))
	assert.Equal(t, 4, account.visits)
	assert.Equal(t, 1, logs.FilterMessage("attempting to set read-only property").Len())
}

func TestProperty_GetWriteOnly(t *testing.T) {
	ps := discover(t, nil)
	note, _ := ps.Get("Note")

	_, err := note.Get(&Account{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotReadable))
}

func TestProperty_NilEntity(t *testing.T) {
	ps := discover(t, nil)
	name, _ := ps.Get("Name")

	_, err := name.Get(nil)
	assert.True(t, errors.Is(err, ErrNilEntity))

	err = name.Set((*Account)(nil), "x")
	assert.True(t, ormerrors.IsAccess(err))

	err = name.Set(Account{}, "x")
	assert.True(t, ormerrors.IsAccess(err), "non-pointer entities cannot be written")
}

func TestProperties_New(t *testing.T) {
	ps := discover(t, nil)

	instance, ok := ps.New().(*Account)
	require.True(t, ok)
	assert.Equal(t, Account{}, *instance)
}

package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, p := Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page)
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 3, p.TotalPages)

	page, p = Paginate(items, 9, 2)
	assert.Equal(t, []int{5}, page)
	assert.Equal(t, 3, p.Page)
	assert.False(t, p.HasNext())

	page, p = Paginate([]int{}, 1, 20)
	assert.Empty(t, page)
	assert.Equal(t, 0, p.TotalPages)
}

func TestDigestStable(t *testing.T) {
	type payload struct {
		ShiftID int64  `json:"shift_id"`
		Note    string `json:"note"`
	}
	a, err := Digest(payload{ShiftID: 1, Note: "x"})
	require.NoError(t, err)
	b, err := Digest(payload{ShiftID: 1, Note: "x"})
	require.NoError(t, err)
	c, err := Digest(payload{ShiftID: 2, Note: "x"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestRoleHas(t *testing.T) {
	assert.True(t, RoleHas(RoleSuperAdmin, PermCompaniesManage))
	assert.False(t, RoleHas(RoleSupervisor, PermCompaniesView))
	assert.True(t, RoleHas(RoleSupervisor, PermShiftsClose))
	assert.False(t, RoleHas(Role("cashier"), PermShiftsView))
}

func TestLockerSerializes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client, time.Minute)
	ctx := context.Background()
	key := ShiftCloseLockKey(42)

	var inner error
	err := locker.WithLock(ctx, key, func(ctx context.Context) error {
		inner = locker.WithLock(ctx, key, func(context.Context) error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrSubmissionInProgress)

	// released after the first holder returns
	boom := errors.New("boom")
	assert.ErrorIs(t, locker.WithLock(ctx, key, func(context.Context) error { return boom }), boom)
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("0712 345678", "KE")
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", got)

	got, err = NormalizePhone("+1 650-253-0000", "KE")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", got)

	_, err = NormalizePhone("12", "KE")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	_, err = NormalizePhone("", "KE")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestValidatorPhoneTag(t *testing.T) {
	type form struct {
		Phone string `validate:"omitempty,phone"`
	}
	v := NewValidator("KE")
	assert.NoError(t, v.Struct(form{Phone: "0712345678"}))
	assert.NoError(t, v.Struct(form{}))
	assert.Error(t, v.Struct(form{Phone: "abc"}))
}

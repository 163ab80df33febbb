package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func permissionDenied() error {
	return &pgconn.PgError{Code: "42501", Message: "permission denied for table tour_services"}
}

func TestRankedAdminList_FullShapeWins(t *testing.T) {
	want := []AdminReservationRow{{ID: 1, ServiceName: "Atlas Foothills Circuit"}}

	rows, shape, err := rankedAdminList(
		func() ([]AdminReservationRow, error) { return want, nil },
		func() ([]AdminReservationRow, error) {
			t.Fatal("minimal shape must not run when full succeeds")
			return nil, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, ShapeFull, shape)
	assert.Equal(t, want, rows)
}

func TestRankedAdminList_DegradesOnPermissionDenied(t *testing.T) {
	want := []AdminReservationRow{{ID: 1}}

	rows, shape, err := rankedAdminList(
		func() ([]AdminReservationRow, error) { return nil, permissionDenied() },
		func() ([]AdminReservationRow, error) { return want, nil },
	)

	require.NoError(t, err)
	assert.Equal(t, ShapeMinimal, shape)
	assert.Equal(t, want, rows)
}

func TestRankedAdminList_DegradesOnWrappedPermissionDenied(t *testing.T) {
	rows, shape, err := rankedAdminList(
		func() ([]AdminReservationRow, error) {
			return nil, fmt.Errorf("list reservations: %w", permissionDenied())
		},
		func() ([]AdminReservationRow, error) { return []AdminReservationRow{{ID: 2}}, nil },
	)

	require.NoError(t, err)
	assert.Equal(t, ShapeMinimal, shape)
	require.Len(t, rows, 1)
}

func TestRankedAdminList_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("connection reset")

	_, shape, err := rankedAdminList(
		func() ([]AdminReservationRow, error) { return nil, boom },
		func() ([]AdminReservationRow, error) {
			t.Fatal("minimal shape must not mask a non-permission failure")
			return nil, nil
		},
	)

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, shape)
}

func TestRankedAdminList_MinimalFailurePropagates(t *testing.T) {
	boom := errors.New("timeout")

	_, _, err := rankedAdminList(
		func() ([]AdminReservationRow, error) { return nil, permissionDenied() },
		func() ([]AdminReservationRow, error) { return nil, boom },
	)

	assert.ErrorIs(t, err, boom)
}

func TestIsPermissionDenied(t *testing.T) {
	assert.True(t, isPermissionDenied(permissionDenied()))
	assert.True(t, isPermissionDenied(fmt.Errorf("wrapped: %w", permissionDenied())))

	// A different SQLSTATE is not a reason to degrade.
	assert.False(t, isPermissionDenied(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, isPermissionDenied(errors.New("permission denied")))
	assert.False(t, isPermissionDenied(nil))
}

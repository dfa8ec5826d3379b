package shifts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpline-erp/pumpline/internal/shared"
)

type stubGateway struct {
	shifts     []Shift
	listErr    error
	listedFor  []int64
	opened     []OpenShiftInput
	formOpts   OpenFormOptions
	nextShift  Shift
	openCalled int
}

func (g *stubGateway) ListShifts(ctx context.Context, stationID int64, status Status) ([]Shift, error) {
	g.listedFor = append(g.listedFor, stationID)
	if g.listErr != nil {
		return nil, g.listErr
	}
	var out []Shift
	for _, sh := range g.shifts {
		if stationID > 0 && sh.StationID != stationID {
			continue
		}
		out = append(out, sh)
	}
	return out, nil
}

func (g *stubGateway) GetShift(ctx context.Context, id int64) (Shift, error) {
	for _, sh := range g.shifts {
		if sh.ID == id {
			return sh, nil
		}
	}
	return Shift{}, errors.New("not found")
}

func (g *stubGateway) OpenShift(ctx context.Context, in OpenShiftInput) (Shift, error) {
	g.openCalled++
	g.opened = append(g.opened, in)
	return g.nextShift, nil
}

func (g *stubGateway) OpenFormOptions(ctx context.Context, stationID int64) (OpenFormOptions, error) {
	return g.formOpts, nil
}

func at(day, hour int) time.Time {
	return time.Date(2026, 5, day, hour, 0, 0, 0, time.UTC)
}

func sampleGateway() *stubGateway {
	return &stubGateway{
		shifts: []Shift{
			{ID: 1, StationID: 2, StationName: "Thika Road", Status: StatusClosed, StartTime: at(1, 6)},
			{ID: 2, StationID: 2, StationName: "Thika Road", Status: "ACTIVE", StartTime: at(3, 6), SupervisorName: "Wanjiru"},
			{ID: 3, StationID: 5, StationName: "Mombasa Road", Status: StatusOpen, StartTime: at(2, 6)},
		},
		formOpts: OpenFormOptions{
			Islands:     []Island{{ID: 7, Name: "Island A"}, {ID: 8, Name: "Island B"}},
			Supervisors: []Staff{{ID: 20, Name: "Wanjiru", Role: "supervisor"}},
			Attendants:  []Staff{{ID: 30, Name: "Otieno", Role: "attendant"}},
		},
		nextShift: Shift{ID: 44, StationID: 9, Status: StatusOpen},
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := NewService(sampleGateway())

	items, err := svc.List(context.Background(), shared.Principal{Role: shared.RoleSuperAdmin}, Filter{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{items[0].ID, items[1].ID, items[2].ID})
}

func TestListForcesStationForStationRoles(t *testing.T) {
	gw := sampleGateway()
	svc := NewService(gw)

	items, err := svc.List(context.Background(), shared.Principal{Role: shared.RoleSupervisor, StationID: 2}, Filter{StationID: 5})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, []int64{2}, gw.listedFor)
}

func TestListFiltersStatusCaseInsensitively(t *testing.T) {
	svc := NewService(sampleGateway())

	items, err := svc.List(context.Background(), shared.Principal{Role: shared.RoleCompanyAdmin}, Filter{Status: StatusActive})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
}

func TestListWrapsGatewayError(t *testing.T) {
	gw := sampleGateway()
	gw.listErr = errors.New("boom")
	svc := NewService(gw)

	_, err := svc.List(context.Background(), shared.Principal{Role: shared.RoleSuperAdmin}, Filter{})
	assert.ErrorIs(t, err, gw.listErr)
}

func TestActiveShift(t *testing.T) {
	svc := NewService(sampleGateway())

	sh, err := svc.ActiveShift(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, sh)
	assert.Equal(t, int64(2), sh.ID)

	sh, err = svc.ActiveShift(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, sh)
}

func TestOpenRejectsStationWithShiftInProgress(t *testing.T) {
	gw := sampleGateway()
	svc := NewService(gw)

	_, err := svc.Open(context.Background(), OpenShiftInput{
		StationID: 2, SupervisorID: 20, StartTime: at(4, 6),
		Islands: []IslandAssignment{{IslandID: 7, AttendantID: 30}},
	})
	assert.ErrorIs(t, err, ErrShiftInProgress)
	assert.Zero(t, gw.openCalled)
}

func TestOpenValidatesInput(t *testing.T) {
	svc := NewService(sampleGateway())

	_, err := svc.Open(context.Background(), OpenShiftInput{StationID: 9, StartTime: at(4, 6)})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field()] = true
	}
	assert.True(t, fields["SupervisorID"])
	assert.True(t, fields["Islands"])
}

func TestOpenRejectsDuplicateIsland(t *testing.T) {
	svc := NewService(sampleGateway())

	_, err := svc.Open(context.Background(), OpenShiftInput{
		StationID: 9, SupervisorID: 20, StartTime: at(4, 6),
		Islands: []IslandAssignment{{IslandID: 7, AttendantID: 30}, {IslandID: 7, AttendantID: 31}},
	})
	assert.ErrorContains(t, err, "assigned twice")
}

func TestOpenPostsToBackend(t *testing.T) {
	gw := sampleGateway()
	svc := NewService(gw)

	sh, err := svc.Open(context.Background(), OpenShiftInput{
		StationID: 9, SupervisorID: 20, StartTime: at(4, 6),
		Islands: []IslandAssignment{{IslandID: 7, AttendantID: 30}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(44), sh.ID)
	require.Len(t, gw.opened, 1)
	assert.Equal(t, int64(9), gw.opened[0].StationID)
}

func TestStatusClosable(t *testing.T) {
	assert.True(t, Status("Open").Closable())
	assert.True(t, StatusActive.Closable())
	assert.False(t, StatusClosed.Closable())
	assert.True(t, Shift{Status: "CLOSED"}.Closed())
}

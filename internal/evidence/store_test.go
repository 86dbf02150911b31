package evidence_test

import (
	"testing"
	"time"

	"github.com/jmerrifield20/custodyledger/internal/evidence"
	"github.com/jmerrifield20/custodyledger/pkg/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1_700_000_000, 0)

func TestRegister_initialHandoff(t *testing.T) {
	s := evidence.NewStore()

	e, err := s.Register("E1", []byte("sample"), evidence.RoleInvestigator, t0)
	require.NoError(t, err)

	assert.Equal(t, "E1", e.ID)
	assert.Equal(t, digest.String("sample"), e.ContentHash)
	assert.Equal(t, t0.Unix(), e.CreatedAt)
	assert.Equal(t, evidence.RoleInvestigator, e.CurrentCustodian)
	require.Len(t, e.History, 1)
	assert.Nil(t, e.History[0].From)
	assert.Equal(t, evidence.RoleInvestigator, e.History[0].To)
	assert.Equal(t, evidence.ActionInitialHandoff, e.History[0].Action)
	assert.True(t, e.Continuous())
}

func TestRegister_duplicateRejected(t *testing.T) {
	s := evidence.NewStore()
	_, err := s.Register("E1", []byte("a"), evidence.RoleInvestigator, t0)
	require.NoError(t, err)

	_, err = s.Register("E1", []byte("b"), evidence.RoleAnalyst, t0.Add(time.Second))
	require.ErrorIs(t, err, evidence.ErrDuplicateID)

	e, ok := s.Get("E1")
	require.True(t, ok)
	assert.Equal(t, digest.String("a"), e.ContentHash, "original record must be untouched")
	assert.Equal(t, 1, s.Len())
}

func TestRegister_duplicateWinsOverBadRole(t *testing.T) {
	s := evidence.NewStore()
	_, err := s.Register("E1", []byte("a"), evidence.RoleInvestigator, t0)
	require.NoError(t, err)

	_, err = s.Register("E1", []byte("b"), evidence.Role("Nobody"), t0)
	require.ErrorIs(t, err, evidence.ErrDuplicateID)
	assert.NotErrorIs(t, err, evidence.ErrInvalidRole)
	assert.Equal(t, 1, s.Len())
}

func TestRegister_validation(t *testing.T) {
	s := evidence.NewStore()

	_, err := s.Register("  ", []byte("x"), evidence.RoleInvestigator, t0)
	assert.ErrorIs(t, err, evidence.ErrInvalidID)

	_, err = s.Register("E1", []byte("x"), evidence.Role("Janitor"), t0)
	assert.ErrorIs(t, err, evidence.ErrInvalidRole)

	assert.Equal(t, 0, s.Len())
}

func TestTransfer_appendsEvent(t *testing.T) {
	s := evidence.NewStore()
	_, err := s.Register("E1", []byte("sample"), evidence.RoleInvestigator, t0)
	require.NoError(t, err)

	e, err := s.Transfer("E1", evidence.RoleEvidenceOfficer, t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, evidence.RoleEvidenceOfficer, e.CurrentCustodian)
	require.Len(t, e.History, 2)
	require.NotNil(t, e.History[1].From)
	assert.Equal(t, evidence.RoleInvestigator, *e.History[1].From)
	assert.Equal(t, evidence.ActionTransferred, e.History[1].Action)
	assert.Equal(t, t0.Add(time.Minute).Unix(), e.History[1].Timestamp)
}

func TestTransfer_notFound(t *testing.T) {
	s := evidence.NewStore()
	_, err := s.Transfer("missing", evidence.RoleAnalyst, t0)
	assert.ErrorIs(t, err, evidence.ErrNotFound)
}

func TestTransfer_continuityOverManyHops(t *testing.T) {
	s := evidence.NewStore()
	_, err := s.Register("E1", nil, evidence.RoleInvestigator, t0)
	require.NoError(t, err)

	hops := []evidence.Role{
		evidence.RoleEvidenceOfficer,
		evidence.RoleAnalyst,
		evidence.RoleAnalyst,
		evidence.RoleProsecutor,
		evidence.RoleInvestigator,
	}
	for i, r := range hops {
		_, err := s.Transfer("E1", r, t0.Add(time.Duration(i+1)*time.Second))
		require.NoError(t, err)
	}

	e, _ := s.Get("E1")
	require.Len(t, e.History, len(hops)+1)
	assert.True(t, e.Continuous())
	for k := 0; k+1 < len(e.History); k++ {
		assert.Equal(t, e.History[k].To, *e.History[k+1].From, "event %d", k)
	}
}

func TestGet_returnsCopy(t *testing.T) {
	s := evidence.NewStore()
	_, err := s.Register("E1", nil, evidence.RoleInvestigator, t0)
	require.NoError(t, err)

	e, _ := s.Get("E1")
	e.CurrentCustodian = evidence.RoleProsecutor
	e.History = append(e.History, evidence.CustodyEvent{To: evidence.RoleProsecutor})

	again, _ := s.Get("E1")
	assert.Equal(t, evidence.RoleInvestigator, again.CurrentCustodian)
	assert.Len(t, again.History, 1)
}

func TestList_registrationOrder(t *testing.T) {
	s := evidence.NewStore()
	for _, id := range []string{"E3", "E1", "E2"} {
		_, err := s.Register(id, nil, evidence.RoleInvestigator, t0)
		require.NoError(t, err)
	}

	got := s.List()
	require.Len(t, got, 3)
	assert.Equal(t, "E3", got[0].ID)
	assert.Equal(t, "E1", got[1].ID)
	assert.Equal(t, "E2", got[2].ID)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    evidence.Role
		wantErr bool
	}{
		{"Investigator", evidence.RoleInvestigator, false},
		{"evidence officer", evidence.RoleEvidenceOfficer, false},
		{"EVIDENCE_OFFICER", evidence.RoleEvidenceOfficer, false},
		{" analyst ", evidence.RoleAnalyst, false},
		{"prosecutor", evidence.RoleProsecutor, false},
		{"judge", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := evidence.ParseRole(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, evidence.ErrInvalidRole, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
	"github.com/JosephChataignon/hAIckers-team/test/testutils"
)

const goalsResponse = "Here you go:\n" +
	`{"explanation": "Moderate deficit.", "calories": 2000, "fiber": 30, "protein": "95"}` +
	"\nEnjoy!"

func newService(goals GoalGenerator) (*CredentialService, *testutils.InMemoryProfileRepository) {
	repo := testutils.NewInMemoryProfileRepository()
	return NewCredentialService(repo, goals, zap.NewNop()), repo
}

func TestRegisterThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	goals := &testutils.MockGoalGenerator{}
	goals.On("GenerateDietaryGoals", mock.Anything, mock.Anything).Return(goalsResponse, nil)

	svc, repo := newService(goals)
	cmd := testutils.NewProfileFactory(7).RegisterCommand()

	result, err := svc.Register(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, result.Goals)
	assert.Empty(t, result.GoalsWarning)
	assert.Equal(t, "Calories: 2000, Fiber: 30g, Protein: 95g", result.Goals.Summary())
	assert.Equal(t, 1, repo.Len())

	p, err := svc.Authenticate(ctx, inbound.LoginCommand{Username: cmd.Username, Password: cmd.Password})
	require.NoError(t, err)
	assert.Equal(t, cmd.Age, p.Age())
	assert.Equal(t, profile.Sex(cmd.Sex), p.Sex())

	stored, err := nutrition.ParseGoals(p.DietaryGoals())
	require.NoError(t, err)
	assert.Equal(t, "Moderate deficit.", stored.Explanation)
	assert.Contains(t, p.DietaryRestrictions(), "Allergies: "+cmd.Allergies)

	goals.AssertCalled(t, "GenerateDietaryGoals", mock.Anything, inbound.GoalsQuery{
		Age:      cmd.Age,
		Sex:      profile.Sex(cmd.Sex),
		WeightKg: cmd.WeightKg,
		HeightCm: cmd.HeightCm,
	})
}

func TestAuthenticate_TrimsUsernameLikeRegistration(t *testing.T) {
	ctx := context.Background()
	goals := &testutils.MockGoalGenerator{}
	goals.On("GenerateDietaryGoals", mock.Anything, mock.Anything).Return(goalsResponse, nil)

	svc, _ := newService(goals)
	cmd := testutils.NewProfileFactory(11).RegisterCommand()
	cmd.Username = "  alice "

	_, err := svc.Register(ctx, cmd)
	require.NoError(t, err)

	for _, username := range []string{"  alice ", "alice"} {
		p, err := svc.Authenticate(ctx, inbound.LoginCommand{Username: username, Password: cmd.Password})
		require.NoError(t, err, username)
		assert.Equal(t, "alice", p.Username())
	}

	_, err = svc.Authenticate(ctx, inbound.LoginCommand{Username: "Alice", Password: cmd.Password})
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidCredentials))
}

func TestRegister_GoalFailuresFallBackToDefault(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		err     error
		warning string
	}{
		{"provider error", "", errors.New("timeout"), WarningGoalsUnavailable},
		{"no json", "I cannot help with that.", nil, WarningGoalsUnparseable},
		{"missing key", `{"calories": 2000, "fiber": 30}`, nil, WarningGoalsUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goals := &testutils.MockGoalGenerator{}
			goals.On("GenerateDietaryGoals", mock.Anything, mock.Anything).Return(tt.raw, tt.err)

			svc, _ := newService(goals)
			cmd := testutils.NewProfileFactory(11).RegisterCommand()

			result, err := svc.Register(context.Background(), cmd)
			require.NoError(t, err)
			assert.Nil(t, result.Goals)
			assert.Equal(t, tt.warning, result.GoalsWarning)
			assert.Equal(t, nutrition.DefaultGoalsText, result.Profile.DietaryGoals())
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	goals := &testutils.MockGoalGenerator{}
	goals.On("GenerateDietaryGoals", mock.Anything, mock.Anything).Return(goalsResponse, nil)

	svc, repo := newService(goals)
	cmd := testutils.NewProfileFactory(3).RegisterCommand()

	_, err := svc.Register(context.Background(), cmd)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), cmd)
	assert.True(t, apperrors.Is(err, apperrors.CodeUsernameAlreadyExists))
	assert.Equal(t, 1, repo.Len())
}

func TestRegister_InvalidProfile(t *testing.T) {
	goals := &testutils.MockGoalGenerator{}
	goals.On("GenerateDietaryGoals", mock.Anything, mock.Anything).Return(goalsResponse, nil)

	svc, repo := newService(goals)
	cmd := testutils.NewProfileFactory(5).RegisterCommand()
	cmd.Sex = "X"

	_, err := svc.Register(context.Background(), cmd)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))
	assert.Zero(t, repo.Len())
}

func TestAuthenticate_Failures(t *testing.T) {
	ctx := context.Background()
	existing := testutils.NewProfileFactory(9).Profile()

	t.Run("unknown user", func(t *testing.T) {
		repo := &testutils.MockProfileRepository{}
		repo.On("FindByUsername", mock.Anything, "ghost").
			Return(nil, apperrors.NewProfileNotFoundError("ghost"))
		svc := NewCredentialService(repo, nil, zap.NewNop())

		_, err := svc.Authenticate(ctx, inbound.LoginCommand{Username: "ghost", Password: "x"})
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidCredentials))
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := &testutils.MockProfileRepository{}
		repo.On("FindByUsername", mock.Anything, existing.Username()).Return(existing, nil)
		svc := NewCredentialService(repo, nil, zap.NewNop())

		_, err := svc.Authenticate(ctx, inbound.LoginCommand{Username: existing.Username(), Password: "nope"})
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidCredentials))
	})

	t.Run("store unavailable", func(t *testing.T) {
		repo := &testutils.MockProfileRepository{}
		repo.On("FindByUsername", mock.Anything, "ana").
			Return(nil, apperrors.NewDatabaseError("find profile", errors.New("connection refused")))
		svc := NewCredentialService(repo, nil, zap.NewNop())

		_, err := svc.Authenticate(ctx, inbound.LoginCommand{Username: "ana", Password: "x"})
		assert.True(t, apperrors.Is(err, apperrors.CodeDatabaseError))
	})
}

func TestCreateAccount_PropagatesStoreError(t *testing.T) {
	p := testutils.NewProfileFactory(13).Profile()
	repo := &testutils.MockProfileRepository{}
	repo.On("Create", mock.Anything, p).Return(apperrors.NewDatabaseError("create profile", errors.New("disk full")))

	svc := NewCredentialService(repo, nil, zap.NewNop())

	err := svc.CreateAccount(context.Background(), p)
	assert.True(t, apperrors.Is(err, apperrors.CodeDatabaseError))
	repo.AssertExpectations(t)
}

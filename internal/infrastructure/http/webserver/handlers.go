package webserver

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/navigation"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/order"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/recipe"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/session"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// Messages shown by the view actions
const (
	msgMissingCredentials = "Please enter both username and password."
	msgRegistered         = "Account created successfully! You can now log in."
	msgRecommendFailed    = "Sorry, we couldn't generate meal recommendations at this time. Please try again."
	msgUnparseable        = "Could not parse AI response"
	msgNoRecommendations  = "No meal recommendations found."
	msgNoRecipe           = "No recipe selected. Please go back and choose a recipe."
	msgStoreRedirect      = "Redirecting to store pickup page..."
	msgStoreInfo          = "In a real implementation, this would open the store's website or show directions to the pickup location."
)

// handleNavigate moves the session to the view named by the form. Unknown
// names fall through to the guard, which resets the session.
func (s *WebServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := sess.State

	view, ok := navigation.Parse(r.PostFormValue("view"))
	if !ok {
		s.logger.Warn("Navigation to unknown view", zap.String("view", r.PostFormValue("view")))
	}
	if view != navigation.Register {
		st.Registration = nil
	}

	st.NavigateTo(view)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ViewTransition(view.String())
	}
	s.redirectHome(w, r, sess)
}

func (s *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := sess.State
	st.NavigateTo(navigation.Login)

	var cmd inbound.LoginCommand
	if err := s.deps.Validator.Bind(r, &cmd); err != nil {
		st.AddFlash(session.FlashError, msgMissingCredentials, "")
		s.redirectHome(w, r, sess)
		return
	}

	p, err := s.deps.Credentials.Authenticate(r.Context(), cmd)
	if s.deps.Metrics != nil {
		s.deps.Metrics.Login(err == nil)
	}
	if err != nil {
		s.flashError(st, err, "Login failed")
		s.redirectHome(w, r, sess)
		return
	}

	if err := s.deps.Sessions.Rotate(r.Context(), sess); err != nil {
		s.logger.Error("Failed to rotate session", zap.Error(err))
	}
	st.Login(p.Snapshot())
	st.AddFlash(session.FlashSuccess, "Login successful!", "")
	s.redirectHome(w, r, sess)
}

func (s *WebServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := sess.State
	st.NavigateTo(navigation.Register)
	st.Registration = nil

	var cmd inbound.RegisterCommand
	if err := s.deps.Validator.Bind(r, &cmd); err != nil {
		s.flashError(st, err, "Registration failed")
		s.redirectHome(w, r, sess)
		return
	}

	result, err := s.deps.Credentials.Register(r.Context(), cmd)
	if err != nil {
		s.flashError(st, err, "Registration failed")
		s.redirectHome(w, r, sess)
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.AccountRegistered()
	}
	st.Registration = &session.Registration{
		Username:     result.Profile.Username(),
		Goals:        result.Goals,
		GoalsWarning: result.GoalsWarning,
	}
	if result.GoalsWarning != "" {
		st.AddFlash(session.FlashWarning, result.GoalsWarning, "")
	}
	st.AddFlash(session.FlashSuccess, msgRegistered, "")
	s.redirectHome(w, r, sess)
}

func (s *WebServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.State.Logout()

	if err := s.deps.Sessions.Rotate(r.Context(), sess); err != nil {
		s.logger.Error("Failed to rotate session", zap.Error(err))
	}
	s.redirectHome(w, r, sess)
}

// handleMealPreparation asks for three recipes. The flow only advances to
// recipe choice when the answer parses.
func (s *WebServer) handleMealPreparation(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := sess.State
	st.NavigateTo(navigation.MealPreparation)

	var cmd inbound.MealRequestCommand
	if err := s.deps.Validator.Bind(r, &cmd); err != nil {
		s.flashError(st, err, msgRecommendFailed)
		s.redirectHome(w, r, sess)
		return
	}
	st.MealPreferences = cmd.Preferences

	recs, err := s.deps.Advisor.GenerateMealRecommendations(r.Context(), *st.Profile, cmd.Preferences)
	if err != nil {
		if s.deps.Metrics != nil {
			s.deps.Metrics.Recommendations(false)
		}
		st.AddFlash(session.FlashError, msgRecommendFailed, detailOf(err))
		s.redirectHome(w, r, sess)
		return
	}

	if recs.GoalsWarning != "" {
		st.AddFlash(session.FlashWarning, recs.GoalsWarning, "")
	}

	if _, err := recs.Recipes(); err != nil {
		s.logger.Warn("Recommendations unparseable", zap.Error(err))
		if s.deps.Metrics != nil {
			s.deps.Metrics.Recommendations(false)
		}
		st.AddFlash(session.FlashWarning, msgUnparseable, recs.Raw)
		s.redirectHome(w, r, sess)
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.Recommendations(true)
	}
	st.StoreRecommendations(cmd.Preferences, recs.Raw)
	st.NavigateTo(navigation.RecipeChoice)
	s.redirectHome(w, r, sess)
}

func (s *WebServer) handleChooseRecipe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := sess.State
	st.NavigateTo(navigation.RecipeChoice)

	if st.MealRecommendationsRaw == "" {
		st.AddFlash(session.FlashError, msgNoRecommendations, "")
		s.redirectHome(w, r, sess)
		return
	}

	recipes, err := recipe.ParseRecommendations(st.MealRecommendationsRaw)
	if err != nil {
		st.AddFlash(session.FlashWarning, msgUnparseable, st.MealRecommendationsRaw)
		s.redirectHome(w, r, sess)
		return
	}

	index, err := strconv.Atoi(r.PostFormValue("index"))
	if err != nil || index < 0 || index >= len(recipes) {
		st.AddFlash(session.FlashError, "Please choose one of the proposed recipes.", "")
		s.redirectHome(w, r, sess)
		return
	}

	chosen := recipes[index]
	if err := chosen.Validate(); err != nil {
		st.AddFlash(session.FlashError, "This recipe cannot be ordered.", err.Error())
		s.redirectHome(w, r, sess)
		return
	}

	st.SelectRecipe(chosen)
	st.NavigateTo(navigation.Ordering)
	s.redirectHome(w, r, sess)
}

// handleOrder starts the order simulation for the selected recipe
func (s *WebServer) handleOrder(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := sess.State
	st.NavigateTo(navigation.Ordering)

	if st.SelectedRecipe == nil {
		st.AddFlash(session.FlashError, msgNoRecipe, "")
		s.redirectHome(w, r, sess)
		return
	}

	switch err := s.deps.Simulator.Start(&st.Order); {
	case errors.Is(err, order.ErrAlreadyStarted):
		st.AddFlash(session.FlashInfo, "Your order is already on its way.", "")
	case err != nil:
		s.flashError(st, err, "Could not start the order")
	default:
		s.logger.Info("Order started",
			zap.String("username", st.Profile.Username),
			zap.String("recipe", st.SelectedRecipe.Title),
		)
		if s.deps.Metrics != nil {
			s.deps.Metrics.OrderStarted()
		}
	}
	s.redirectHome(w, r, sess)
}

func (s *WebServer) handleGoToStore(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := sess.State
	st.NavigateTo(navigation.Ordering)

	st.AddFlash(session.FlashSuccess, msgStoreRedirect, "")
	st.AddFlash(session.FlashInfo, msgStoreInfo, "")
	s.redirectHome(w, r, sess)
}

// handleOrderProgress renders the progress fragment polled by htmx
func (s *WebServer) handleOrderProgress(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.State.SelectedRecipe == nil {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusConflict)
		return
	}

	body, err := s.templates.fragment("order_progress", s.progressFor(sess, false))
	if err != nil {
		s.logger.Error("Failed to render order progress", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.save(w, r, sess)
	writeHTML(w, http.StatusOK, body)
}

// flashError turns err into a visible message. AppErrors carry their own
// user-facing text; anything else is logged and shown as fallback.
func (s *WebServer) flashError(st *session.State, err error, fallback string) {
	appErr, ok := apperrors.As(err)
	if !ok {
		s.logger.Error(fallback, zap.Error(err))
		st.AddFlash(session.FlashError, fallback, "")
		return
	}

	switch appErr.Code {
	case apperrors.CodeValidationFailed, apperrors.CodeBadRequest:
		st.AddFlash(session.FlashError, "Please check the form", appErr.Details)
	case apperrors.CodeInvalidCredentials, apperrors.CodeUsernameAlreadyExists:
		st.AddFlash(session.FlashError, appErr.UserMessage(), "")
	default:
		s.logger.Error(fallback, zap.Object("error", appErr))
		st.AddFlash(session.FlashError, fallback, appErr.UserMessage())
	}
}

func detailOf(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.UserMessage()
	}
	return ""
}

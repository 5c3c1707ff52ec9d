package webserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/navigation"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/order"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/recipe"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/session"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

// PlaceholderImage is shown when no photo is found for a recipe
const PlaceholderImage = "/static/img/placeholder.svg"

// imageLookupTimeout bounds the photo lookups of one recipe choice render
const imageLookupTimeout = 10 * time.Second

// page is what the layout receives
type page struct {
	Title     string
	View      string
	CSRFToken string
	Flashes   []session.Flash
	Profile   *profile.Snapshot
	Data      interface{}
}

type registerData struct {
	Registration *session.Registration
}

type dashboardData struct {
	Profile      profile.Snapshot
	SexLabel     string
	BMI          string
	Restrictions profile.RestrictionParts
	Goals        *nutrition.Goals
	RawGoals     string
}

type mealPreparationData struct {
	Preferences string
}

type recipeCard struct {
	Index  int
	Recipe recipe.Recipe
	Steps  []string
	Image  outbound.Photo
	Stock  bool
}

type recipeChoiceData struct {
	Missing     bool
	Unparseable string
	Recipes     []recipeCard
}

type orderingData struct {
	Missing  bool
	Recipe   *recipe.Recipe
	Progress progressData
}

// progressData feeds the order_progress fragment
type progressData struct {
	Snapshot  order.Snapshot
	Steps     int
	Total     time.Duration
	CSRFToken string
	// Live is set for websocket pushes, which must not start htmx polling
	Live bool
}

var viewTitles = map[navigation.View]string{
	navigation.Onboarding:      "Welcome",
	navigation.Login:           "Log in",
	navigation.Register:        "Create your account",
	navigation.Dashboard:       "Dashboard",
	navigation.MealPreparation: "Meal preparation",
	navigation.RecipeChoice:    "Recipe recommendations",
	navigation.Ordering:        "Ingredient checklist",
}

// handleIndex renders the session's current view
func (s *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	st := sess.State

	view, data := s.viewData(r.Context(), sess)

	body, err := s.templates.page(view.String(), page{
		Title:     viewTitles[view],
		View:      view.String(),
		CSRFToken: sess.CSRFToken,
		Flashes:   st.PopFlashes(),
		Profile:   st.Profile,
		Data:      data,
	})
	if err != nil {
		s.logger.Error("Failed to render view", zap.String("view", view.String()), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.save(w, r, sess)
	writeHTML(w, http.StatusOK, body)
}

// viewData applies the guard and builds the data for the resulting view
func (s *WebServer) viewData(ctx context.Context, sess *Session) (navigation.View, interface{}) {
	st := sess.State
	if st.Authenticated && st.Profile == nil {
		st.Logout()
	}

	switch view := st.Resolve(); view {
	case navigation.Onboarding, navigation.Login:
		return view, nil
	case navigation.Register:
		return view, registerData{Registration: st.Registration}
	case navigation.Dashboard:
		return view, dashboardFor(*st.Profile)
	case navigation.MealPreparation:
		return view, mealPreparationData{Preferences: st.MealPreferences}
	case navigation.RecipeChoice:
		return view, s.recipeChoiceFor(ctx, st)
	case navigation.Ordering:
		return view, s.orderingFor(sess)
	default:
		s.logger.Error("Unhandled view, falling back to onboarding", zap.Stringer("view", view))
		st.Logout()
		return navigation.Onboarding, nil
	}
}

func dashboardFor(p profile.Snapshot) dashboardData {
	data := dashboardData{
		Profile:      p,
		SexLabel:     p.Sex.Label(),
		BMI:          p.FormattedBMI(),
		Restrictions: p.Restrictions(),
	}
	if goals, err := p.Goals(); err == nil {
		data.Goals = &goals
	} else {
		data.RawGoals = p.DietaryGoals
	}
	return data
}

func (s *WebServer) recipeChoiceFor(ctx context.Context, st *session.State) recipeChoiceData {
	if st.MealRecommendationsRaw == "" {
		return recipeChoiceData{Missing: true}
	}

	recipes, err := recipe.ParseRecommendations(st.MealRecommendationsRaw)
	if err != nil {
		return recipeChoiceData{Unparseable: st.MealRecommendationsRaw}
	}

	cards := make([]recipeCard, len(recipes))
	for i, rec := range recipes {
		cards[i] = recipeCard{Index: i, Recipe: rec, Steps: rec.Steps()}
	}
	s.attachImages(ctx, cards)

	return recipeChoiceData{Recipes: cards}
}

// attachImages looks the photos up concurrently. A miss or a failure leaves
// the placeholder in place.
func (s *WebServer) attachImages(ctx context.Context, cards []recipeCard) {
	ctx, cancel := context.WithTimeout(ctx, imageLookupTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for i := range cards {
		card := &cards[i]
		card.Image = outbound.Photo{URL: PlaceholderImage, Alt: card.Recipe.Title}

		if s.deps.Images == nil {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			photo, err := s.deps.Images.ImageFor(ctx, card.Recipe.Title)
			if err != nil {
				s.logger.Warn("Image lookup failed", zap.String("recipe", card.Recipe.Title), zap.Error(err))
			}
			found := err == nil && photo != nil && photo.URL != ""
			if s.deps.Metrics != nil {
				s.deps.Metrics.ImageLookup(found)
			}
			if found {
				card.Image = *photo
				card.Stock = true
			}
		}()
	}
	wg.Wait()
}

func (s *WebServer) orderingFor(sess *Session) orderingData {
	st := sess.State
	if st.SelectedRecipe == nil {
		return orderingData{Missing: true}
	}

	return orderingData{
		Recipe:   st.SelectedRecipe,
		Progress: s.progressFor(sess, false),
	}
}

// progressFor advances the session's tracker to now
func (s *WebServer) progressFor(sess *Session, live bool) progressData {
	script := s.deps.Simulator.Script()
	return progressData{
		Snapshot:  s.deps.Simulator.Tick(&sess.State.Order),
		Steps:     len(script),
		Total:     script.Total(),
		CSRFToken: sess.CSRFToken,
		Live:      live,
	}
}

package webserver

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JosephChataignon/hAIckers-team/internal/application/user"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/order"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/memory"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/security"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
	"github.com/JosephChataignon/hAIckers-team/test/testutils"
	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubAdvisor struct {
	mu    sync.Mutex
	raw   string
	err   error
	calls int
}

func (a *stubAdvisor) GenerateDietaryGoals(context.Context, inbound.GoalsQuery) (string, error) {
	return testutils.SampleGoals().Encode(), nil
}

func (a *stubAdvisor) GenerateMealRecommendations(_ context.Context, _ profile.Snapshot, _ string) (*inbound.Recommendations, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &inbound.Recommendations{Raw: a.raw}, nil
}

type stubImages struct{}

func (stubImages) ImageFor(_ context.Context, name string) (*outbound.Photo, error) {
	if name == "Gazpacho" {
		return &outbound.Photo{
			URL:             "https://images.example.com/gazpacho.jpg",
			Alt:             "A bowl of gazpacho",
			Photographer:    "Jo Doe",
			PhotographerURL: "https://images.example.com/jo",
		}, nil
	}
	return nil, nil
}

type testEnv struct {
	t       *testing.T
	web     *WebServer
	srv     *httptest.Server
	client  *http.Client
	jar     *cookiejar.Jar
	clock   *testClock
	advisor *stubAdvisor
	creds   *user.CredentialService
	goals   *testutils.MockGoalGenerator
	// last is the body of the most recent page, the source of the CSRF token
	last string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := &config.Config{
		App:    config.AppConfig{Name: "mealplanner", Environment: "test"},
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Session: config.SessionConfig{
			CookieName: "mealplanner_session",
			TTL:        time.Hour,
			Backend:    "memory",
		},
	}

	cache := memory.NewCacheRepository()
	t.Cleanup(cache.Close)

	goals := &testutils.MockGoalGenerator{}
	goals.On("GenerateDietaryGoals", mock.Anything, mock.Anything).
		Return(testutils.SampleGoals().Encode(), nil).Maybe()

	creds := user.NewCredentialService(testutils.NewInMemoryProfileRepository(), goals, logger)
	clock := &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	advisor := &stubAdvisor{raw: testutils.SampleRecommendationsJSON}

	web, err := NewWebServer(cfg, logger, Dependencies{
		Credentials: creds,
		Advisor:     advisor,
		Images:      stubImages{},
		Simulator:   order.NewSimulator(order.DefaultScript, order.DefaultPickup, clock.Now),
		Sessions:    NewSessionStore(cache, cfg.Session, nil, logger),
		Validator:   security.NewValidationService(logger),
	})
	require.NoError(t, err)
	web.tickInterval = 10 * time.Millisecond

	srv := httptest.NewServer(web.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		t:       t,
		web:     web,
		srv:     srv,
		client:  &http.Client{Jar: jar, Timeout: 5 * time.Second},
		jar:     jar,
		clock:   clock,
		advisor: advisor,
		creds:   creds,
		goals:   goals,
	}
}

func (e *testEnv) read(resp *http.Response) string {
	e.t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return string(body)
}

func (e *testEnv) get(path string) string {
	e.t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(e.t, err)
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	e.last = e.read(resp)
	return e.last
}

func (e *testEnv) csrf() string {
	e.t.Helper()
	if e.last == "" {
		e.get("/")
	}
	m := csrfPattern.FindStringSubmatch(e.last)
	require.NotNil(e.t, m, "page carries no CSRF token")
	return m[1]
}

// post submits a form with the current CSRF token and returns the page the
// redirect lands on
func (e *testEnv) post(path string, form url.Values) string {
	e.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", e.csrf())

	resp, err := e.client.PostForm(e.srv.URL+path, form)
	require.NoError(e.t, err)
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	e.last = e.read(resp)
	return e.last
}

func (e *testEnv) navigate(view string) string {
	return e.post("/navigate", url.Values{"view": {view}})
}

func (e *testEnv) login(username string) string {
	e.t.Helper()
	p := testutils.NewProfileFactory(7).ProfileNamed(username)
	require.NoError(e.t, e.creds.CreateAccount(context.Background(), p))

	e.navigate("login")
	return e.post("/login", url.Values{
		"username": {username},
		"password": {testutils.DefaultPassword},
	})
}

func (e *testEnv) startOrder() string {
	e.t.Helper()
	e.login("ana")
	e.post("/meal-preparation", url.Values{"preferences": {"something light"}})
	e.post("/recipes/choose", url.Values{"index": {"1"}})
	return e.post("/order", nil)
}

func TestIndex_NewVisitorSeesOnboarding(t *testing.T) {
	env := newTestEnv(t)

	body := env.get("/")

	assert.Contains(t, body, "Welcome to LeCommis")
	assert.Contains(t, body, "Create New Account")
	u, _ := url.Parse(env.srv.URL)
	assert.NotEmpty(t, env.jar.Cookies(u), "session cookie")
}

func TestNavigate_AnonymousVisitorCannotReachGuardedViews(t *testing.T) {
	for _, view := range []string{"dashboard", "meal_preparation", "recipe_choice", "ordering"} {
		t.Run(view, func(t *testing.T) {
			env := newTestEnv(t)
			body := env.navigate(view)
			assert.Contains(t, body, "Welcome to LeCommis")
		})
	}
}

func TestNavigate_UnknownViewResets(t *testing.T) {
	env := newTestEnv(t)
	env.login("ana")

	body := env.navigate("admin")

	assert.Contains(t, body, "Welcome to LeCommis")
	assert.NotContains(t, body, "Logout")
}

func TestCSRF_MissingTokenSendsVisitorHome(t *testing.T) {
	env := newTestEnv(t)
	env.get("/")

	resp, err := env.client.PostForm(env.srv.URL+"/navigate", url.Values{"view": {"login"}})
	require.NoError(t, err)
	body := env.read(resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Your session expired. Please try again.")
	assert.Contains(t, body, "Welcome to LeCommis")
}

func TestRegister_ShowsGeneratedGoals(t *testing.T) {
	env := newTestEnv(t)
	env.navigate("register")

	body := env.post("/register", url.Values{
		"username":     {"bea"},
		"password":     {"hunter22"},
		"age":          {"31"},
		"sex":          {"F"},
		"weight":       {"62.5"},
		"height":       {"168"},
		"restrictions": {"vegetarian"},
	})

	assert.Contains(t, body, "Account created successfully! You can now log in.")
	assert.Contains(t, body, "Dietary goals generated!")
	assert.Contains(t, body, "2100")

	body = env.navigate("login")
	assert.NotContains(t, body, "Dietary goals generated!")

	body = env.post("/login", url.Values{"username": {"bea"}, "password": {"hunter22"}})
	assert.Contains(t, body, "Login successful!")
	assert.Contains(t, body, "Your Profile")
	assert.Contains(t, body, "bea")
}

func TestRegister_RejectsInvalidForm(t *testing.T) {
	env := newTestEnv(t)
	env.navigate("register")

	body := env.post("/register", url.Values{
		"username": {"bea"},
		"password": {"hunter22"},
		"age":      {"thirty"},
		"sex":      {"F"},
		"weight":   {"62"},
		"height":   {"168"},
	})

	assert.Contains(t, body, "Please check the form")
	assert.Contains(t, body, "age must be a whole number")
	assert.Contains(t, body, "Create Your Account")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	p := testutils.NewProfileFactory(1).ProfileNamed("bea")
	require.NoError(t, env.creds.CreateAccount(context.Background(), p))
	env.navigate("register")

	body := env.post("/register", url.Values{
		"username": {"bea"},
		"password": {"hunter22"},
		"age":      {"31"},
		"sex":      {"F"},
		"weight":   {"62"},
		"height":   {"168"},
	})

	assert.Contains(t, body, "Username already exists")
	assert.NotContains(t, body, "Account created successfully!")
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		form     url.Values
		expected string
	}{
		{"missing password", url.Values{"username": {"ana"}}, msgMissingCredentials},
		{"blank username", url.Values{"username": {"  "}, "password": {"x"}}, msgMissingCredentials},
		{"wrong password", url.Values{"username": {"ana"}, "password": {"nope"}}, "Invalid username or password"},
		{"unknown user", url.Values{"username": {"zoe"}, "password": {"nope"}}, "Invalid username or password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			p := testutils.NewProfileFactory(3).ProfileNamed("ana")
			require.NoError(t, env.creds.CreateAccount(context.Background(), p))
			env.navigate("login")

			body := env.post("/login", tt.form)

			assert.Contains(t, body, tt.expected)
			assert.Contains(t, body, "Login to Continue")
		})
	}
}

func TestLogin_RotatesSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.get("/")
	u, _ := url.Parse(env.srv.URL)
	before := env.jar.Cookies(u)[0].Value

	env.login("ana")

	after := env.jar.Cookies(u)[0].Value
	assert.NotEqual(t, before, after)
}

func TestLogout_ResetsSession(t *testing.T) {
	env := newTestEnv(t)
	env.login("ana")

	body := env.post("/logout", nil)

	assert.Contains(t, body, "Welcome to LeCommis")
	body = env.navigate("dashboard")
	assert.Contains(t, body, "Welcome to LeCommis")
}

func TestMealPreparation_ShowsRecipes(t *testing.T) {
	env := newTestEnv(t)
	env.login("ana")
	env.navigate("meal_preparation")

	body := env.post("/meal-preparation", url.Values{"preferences": {"something light"}})

	assert.Contains(t, body, "Recipe Recommendations")
	for _, r := range testutils.SampleRecipes() {
		assert.Contains(t, body, r.Title)
	}
	assert.Contains(t, body, "https://images.example.com/gazpacho.jpg")
	assert.Contains(t, body, "Jo Doe")
	assert.Contains(t, body, PlaceholderImage)
	assert.Contains(t, body, "<li>Blend the vegetables.</li>")
}

func TestMealPreparation_UnparseableAnswerStaysOnForm(t *testing.T) {
	env := newTestEnv(t)
	env.advisor.raw = "Here are three great meals for you"
	env.login("ana")

	body := env.post("/meal-preparation", url.Values{"preferences": {"pasta"}})

	assert.Contains(t, body, "Could not parse AI response")
	assert.Contains(t, body, "Here are three great meals for you")
	assert.Contains(t, body, "Meal Preparation")
	assert.Contains(t, body, ">pasta</textarea>")
}

func TestMealPreparation_AdvisorFailure(t *testing.T) {
	env := newTestEnv(t)
	env.advisor.err = apperrors.NewExternalServiceError("openai", io.ErrUnexpectedEOF)
	env.login("ana")

	body := env.post("/meal-preparation", url.Values{"preferences": {"pasta"}})

	assert.Contains(t, body, "generate meal recommendations at this time")
	assert.Contains(t, body, "Failed to communicate with openai")
	assert.Contains(t, body, "Meal Preparation")
}

func TestChooseRecipe(t *testing.T) {
	env := newTestEnv(t)
	env.login("ana")
	env.post("/meal-preparation", url.Values{"preferences": {""}})

	body := env.post("/recipes/choose", url.Values{"index": {"1"}})

	assert.Contains(t, body, "Ingredients for: <span>Caprese Salad</span>")
	assert.Contains(t, body, "mozzarella")
	assert.Contains(t, body, "Order Ingredients")

	env.navigate("recipe_choice")
	body = env.post("/recipes/choose", url.Values{"index": {"7"}})
	assert.Contains(t, body, "Please choose one of the proposed recipes.")
}

func TestOrder_ProgressesToPickup(t *testing.T) {
	env := newTestEnv(t)

	body := env.startOrder()
	assert.Contains(t, body, "Searching nearby stores...")
	assert.Contains(t, body, `hx-get="/order/progress"`)
	assert.NotContains(t, body, "Order Ingredients")

	env.clock.Advance(4 * time.Second)
	fragment := env.fragment("/order/progress")
	assert.Contains(t, fragment, "Searching ingredients...")
	assert.Contains(t, fragment, "Step 3 of 5")

	env.clock.Advance(7 * time.Second)
	fragment = env.fragment("/order/progress")
	assert.Contains(t, fragment, "Order Ready!")
	assert.Contains(t, fragment, order.DefaultPickup.Address)
	assert.NotContains(t, fragment, "hx-get")

	body = env.post("/order/store", nil)
	assert.Contains(t, body, msgStoreRedirect)
	assert.Contains(t, body, "Order Ready!")
}

func TestOrder_SecondStartIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.startOrder()

	body := env.post("/order", nil)

	assert.Contains(t, body, "Your order is already on its way.")
}

func TestGuardedActions_RequireLogin(t *testing.T) {
	env := newTestEnv(t)
	env.get("/")

	body := env.post("/order", nil)
	assert.Contains(t, body, "Welcome to LeCommis")

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/order/progress", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	env.read(resp)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("HX-Redirect"))
}

func TestOrderSocket_StreamsUntilReady(t *testing.T) {
	env := newTestEnv(t)
	env.startOrder()

	conn := env.dial("/order/ws")
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(first), "Searching nearby stores...")
	assert.NotContains(t, string(first), "hx-get", "live fragments must not poll")

	env.clock.Advance(order.DefaultScript.Total())

	var last string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		last = string(msg)
	}
	assert.Contains(t, last, "Order Ready!")

	// the completed order was written back to the session
	body := env.get("/")
	assert.Contains(t, body, "Order Ready!")
	assert.NotContains(t, body, `hx-get="/order/progress"`)
}

func TestOrderSocket_RejectsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	env.get("/")

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("/order/ws"), env.cookieHeader())
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func (e *testEnv) fragment(path string) string {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(e.t, err)
	req.Header.Set("HX-Request", "true")

	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	return e.read(resp)
}

func (e *testEnv) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http") + path
}

func (e *testEnv) cookieHeader() http.Header {
	u, _ := url.Parse(e.srv.URL)
	header := http.Header{}
	for _, c := range e.jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}
	return header
}

func (e *testEnv) dial(path string) *websocket.Conn {
	e.t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(path), e.cookieHeader())
	require.NoError(e.t, err)
	return conn
}

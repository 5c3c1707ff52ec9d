// Package navigation defines the screens of the application and the rule
// that keeps anonymous sessions out of the member area.
package navigation

// View identifies one screen
type View int

const (
	Onboarding View = iota
	Login
	Register
	Dashboard
	MealPreparation
	RecipeChoice
	Ordering

	viewCount
)

// Invalid is what an unrecognised name decodes to.
const Invalid View = -1

var viewNames = [viewCount]string{
	Onboarding:      "onboarding",
	Login:           "login",
	Register:        "register",
	Dashboard:       "dashboard",
	MealPreparation: "meal_preparation",
	RecipeChoice:    "recipe_choice",
	Ordering:        "ordering",
}

// All returns every view in declaration order
func All() []View {
	views := make([]View, 0, viewCount)
	for v := Onboarding; v < viewCount; v++ {
		views = append(views, v)
	}
	return views
}

// Parse maps a view name to its View
func Parse(name string) (View, bool) {
	for i, n := range viewNames {
		if n == name {
			return View(i), true
		}
	}
	return Invalid, false
}

// Valid reports whether v is a known view
func (v View) Valid() bool {
	return v >= Onboarding && v < viewCount
}

// RequiresAuth reports whether only logged-in sessions may see v
func (v View) RequiresAuth() bool {
	switch v {
	case Dashboard, MealPreparation, RecipeChoice, Ordering:
		return true
	default:
		return false
	}
}

func (v View) String() string {
	if !v.Valid() {
		return "invalid"
	}
	return viewNames[v]
}

// MarshalText implements encoding.TextMarshaler
func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// to Invalid instead of failing so a stale session still loads.
func (v *View) UnmarshalText(text []byte) error {
	parsed, _ := Parse(string(text))
	*v = parsed
	return nil
}

// Resolve applies the access rule: an invalid view, or a protected view
// without authentication, resolves to Onboarding and forces the session
// to anonymous.
func Resolve(current View, authenticated bool) (View, bool) {
	if !current.Valid() || (current.RequiresAuth() && !authenticated) {
		return Onboarding, false
	}
	return current, authenticated
}

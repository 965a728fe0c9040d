package validate

// Registration is the sign-up form.
type Registration struct {
	FirstName string `json:"firstName" validate:"notblank,max=64"`
	LastName  string `json:"lastName" validate:"notblank,max=64"`
	Email     string `json:"email" validate:"required,max=256,email"`
	Password  string `json:"password" validate:"required,min=6,max=64"`
}

var registrationMessages = messages{
	"firstName.notblank": "First name cannot be blank.",
	"firstName.max":      "First name cannot exceed 64 characters.",
	"lastName.notblank":  "Last name cannot be blank.",
	"lastName.max":       "Last name cannot exceed 64 characters.",
	"email.required":     "Email is required.",
	"email.max":          "Email cannot exceed 256 characters.",
	"email.email":        "Please enter a valid email address.",
	"password.required":  "Password is required.",
	"password.min":       "Password must be at least 6 characters.",
	"password.max":       "Password cannot exceed 64 characters.",
}

// Register checks a sign-up form.
func Register(r Registration) error {
	return check(r, registrationMessages)
}

// Login is the sign-in form.
type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = messages{
	"email.required":    "Please enter both email and password.",
	"password.required": "Please enter both email and password.",
}

// SignIn checks a sign-in form.
func SignIn(l Login) error {
	return check(l, loginMessages)
}

// ProfileUpdate is the profile edit form. Empty fields are left unchanged.
type ProfileUpdate struct {
	FirstName       string `json:"firstName" validate:"omitempty,notblank,max=64"`
	LastName        string `json:"lastName" validate:"omitempty,notblank,max=64"`
	Email           string `json:"email" validate:"omitempty,max=256,email"`
	Password        string `json:"password" validate:"omitempty,min=6,max=64"`
	CurrentPassword string `json:"currentPassword" validate:"required_with=Password"`
}

var profileMessages = messages{
	"firstName.notblank":            "First name cannot be blank.",
	"firstName.max":                 "First name cannot exceed 64 characters.",
	"lastName.notblank":             "Last name cannot be blank.",
	"lastName.max":                  "Last name cannot exceed 64 characters.",
	"email.max":                     "Email cannot exceed 256 characters.",
	"email.email":                   "Please enter a valid email address.",
	"password.min":                  "Password must be at least 6 characters.",
	"password.max":                  "Password cannot exceed 64 characters.",
	"currentPassword.required_with": "Current password is required to change your password.",
}

// Profile checks a profile edit.
func Profile(p ProfileUpdate) error {
	return check(p, profileMessages)
}

// Empty reports whether the update changes no account field.
func (p ProfileUpdate) Empty() bool {
	return p.FirstName == "" && p.LastName == "" && p.Email == "" && p.Password == ""
}

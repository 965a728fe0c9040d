package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
)

// Action names the user flow an error came from, for choosing its message.
type Action string

// Actions with dedicated wording.
const (
	ActionLogin          Action = "login"
	ActionRegister       Action = "register"
	ActionCreatePetition Action = "create-petition"
	ActionEditPetition   Action = "edit-petition"
	ActionDeletePetition Action = "delete-petition"
	ActionSupport        Action = "support"
	ActionProfile        Action = "profile"
	ActionBrowse         Action = "browse"
)

const (
	msgUnexpected   = "An unexpected error occurred. Please try again."
	msgServerError  = "Internal server error. Please try again."
	msgNoConnection = "Unable to connect to the server. Please try again later."
)

// badRequestRule rewrites a 400 explanation into user wording.
type badRequestRule struct {
	pattern *regexp.Regexp
	message string
}

var petitionBadRequest = []badRequestRule{
	{regexp.MustCompile(`data/title must NOT have fewer than 1 characters`), "Petition title cannot be empty."},
	{regexp.MustCompile(`data/title must NOT have more than 128 characters`), "Petition title cannot exceed 128 characters."},
	{regexp.MustCompile(`data/supportTiers/\d+/title must NOT have more than 128 characters`), "Support tier title cannot exceed 128 characters."},
	{regexp.MustCompile(`data/description must NOT have fewer than 1 characters`), "Petition description cannot be empty."},
	{regexp.MustCompile(`data/description must NOT have more than 1024 characters`), "Petition description cannot exceed 1024 characters."},
	{regexp.MustCompile(`data/supportTiers/\d+/description must NOT have more than 1024 characters`), "Support tier description cannot exceed 1024 characters."},
	{regexp.MustCompile(`photo must be image/jpeg, image/png, image/gif type`), "Invalid image type. Allowed types are: image/jpeg, image/png, image/gif."},
}

// UserMessage turns err into the sentence shown to the user for action.
// A nil error yields the empty string.
func UserMessage(action Action, err error) string {
	if err == nil {
		return ""
	}
	if IsTransport(err) {
		if action == ActionLogin {
			return "Unable to connect to the server."
		}
		return msgNoConnection
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch action {
	case ActionLogin:
		switch apiErr.Status {
		case http.StatusBadRequest:
			return "Invalid login request."
		case http.StatusUnauthorized:
			return "Incorrect email or password."
		}
		return "An error occurred. Please try again."

	case ActionRegister:
		switch apiErr.Status {
		case http.StatusBadRequest:
			return "Invalid information. Please check your input."
		case http.StatusForbidden:
			return "Email already in use. Please use a different email."
		case http.StatusInternalServerError:
			return "Internal server error. Please try again later."
		}
		return msgUnexpected

	case ActionCreatePetition, ActionEditPetition:
		switch apiErr.Status {
		case http.StatusBadRequest:
			for _, rule := range petitionBadRequest {
				if rule.pattern.MatchString(apiErr.Message) {
					return rule.message
				}
			}
			return "Invalid information. Please check your input."
		case http.StatusUnauthorized:
			return "You must be logged in to do that."
		case http.StatusForbidden:
			if action == ActionCreatePetition {
				return "You are not authorized to create this petition."
			}
			if strings.Contains(strings.ToLower(apiErr.Message), "title") {
				return "Petition or support tier title is already in use."
			}
			return "You are not authorized to edit this petition."
		case http.StatusRequestEntityTooLarge:
			return "Field or File size exceeds the allowable limit."
		case http.StatusInternalServerError:
			return msgServerError
		}
		return msgUnexpected

	case ActionSupport:
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return "You must be logged in to support a petition."
		case http.StatusForbidden:
			if apiErr.Message != "" {
				return apiErr.Message
			}
			return "You cannot support this petition at that tier."
		case http.StatusNotFound:
			return "Petition or support tier not found."
		}
		return "Failed to support petition."

	case ActionDeletePetition:
		switch apiErr.Status {
		case http.StatusForbidden:
			return "You can only delete your own petitions."
		case http.StatusNotFound:
			return "Petition not found."
		}
		return "Failed to delete petition."

	case ActionProfile:
		if apiErr.Message != "" && apiErr.Status < http.StatusInternalServerError {
			return apiErr.Message
		}
		return "Failed to update profile."
	}

	if apiErr.Status >= http.StatusInternalServerError {
		return msgServerError
	}
	return msgUnexpected
}

// Package errors provides coded domain errors that surface as user-visible
// messages rather than failures.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Account errors
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUserExists         Code = "USER_EXISTS"
	CodeInvalidUsername    Code = "INVALID_USERNAME"
	CodeInvalidEmail       Code = "INVALID_EMAIL"
	CodeInvalidProfile     Code = "INVALID_PROFILE"
	CodeNotAuthenticated   Code = "NOT_AUTHENTICATED"
	CodeSessionInvalid     Code = "SESSION_INVALID"

	// Friend errors
	CodeFriendTargetNotFound   Code = "FRIEND_TARGET_NOT_FOUND"
	CodeFriendSelfRequest      Code = "FRIEND_SELF_REQUEST"
	CodeFriendAlreadyConnected Code = "FRIEND_ALREADY_CONNECTED"
	CodeFriendRequestExists    Code = "FRIEND_REQUEST_EXISTS"
	CodeFriendRequestNotFound  Code = "FRIEND_REQUEST_NOT_FOUND"
	CodeFriendRequestsDisabled Code = "FRIEND_REQUESTS_DISABLED"

	// Journal errors
	CodeMoodInvalid    Code = "MOOD_INVALID"
	CodeEmotionInvalid Code = "EMOTION_INVALID"
	CodeEntryNotFound  Code = "ENTRY_NOT_FOUND"
	CodeDayInvalid     Code = "DAY_INVALID"

	// Notification errors
	CodeNotificationsUnsupported Code = "NOTIFICATIONS_UNSUPPORTED"
	CodePermissionDenied         Code = "PERMISSION_DENIED"
	CodeReminderKindUnknown      Code = "REMINDER_KIND_UNKNOWN"

	// Storage and transport errors
	CodeNotFound       Code = "NOT_FOUND"
	CodeInvalidRequest Code = "INVALID_REQUEST"
)

// HTTPStatus maps a code to the status the JSON API answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidUsername,
		CodeInvalidEmail,
		CodeInvalidProfile,
		CodeFriendSelfRequest,
		CodeMoodInvalid,
		CodeEmotionInvalid,
		CodeDayInvalid,
		CodeReminderKindUnknown,
		CodeInvalidRequest:
		return http.StatusBadRequest

	case CodeInvalidCredentials,
		CodeNotAuthenticated,
		CodeSessionInvalid:
		return http.StatusUnauthorized

	case CodePermissionDenied,
		CodeFriendRequestsDisabled:
		return http.StatusForbidden

	case CodeNotFound,
		CodeFriendTargetNotFound,
		CodeFriendRequestNotFound,
		CodeEntryNotFound:
		return http.StatusNotFound

	case CodeUserExists,
		CodeFriendAlreadyConnected,
		CodeFriendRequestExists:
		return http.StatusConflict

	case CodeNotificationsUnsupported:
		return http.StatusNotImplemented

	default:
		return http.StatusInternalServerError
	}
}

var userMessages = map[Code]string{
	CodeInvalidCredentials:       "Invalid email or password.",
	CodeUserExists:               "An account with that email or username already exists.",
	CodeInvalidUsername:          "Choose a username of 3-32 letters, digits, dots, dashes, or underscores.",
	CodeInvalidEmail:             "Enter a valid email address.",
	CodeInvalidProfile:           "Some profile fields are invalid.",
	CodeNotAuthenticated:         "Sign in to continue.",
	CodeSessionInvalid:           "Your session has expired. Sign in again.",
	CodeFriendTargetNotFound:     "No user with that username.",
	CodeFriendSelfRequest:        "You cannot send a friend request to yourself.",
	CodeFriendAlreadyConnected:   "You are already friends.",
	CodeFriendRequestExists:      "A friend request is already pending.",
	CodeFriendRequestNotFound:    "That friend request no longer exists.",
	CodeFriendRequestsDisabled:   "This user is not accepting friend requests.",
	CodeMoodInvalid:              "Pick one of the listed moods.",
	CodeEmotionInvalid:           "Pick one of the listed emotions.",
	CodeEntryNotFound:            "That entry no longer exists.",
	CodeDayInvalid:               "Dates use the YYYY-MM-DD format.",
	CodeNotificationsUnsupported: "Notifications are not supported on this device.",
	CodePermissionDenied:         "Notifications are blocked. Enable them in your system settings to receive reminders.",
	CodeReminderKindUnknown:      "Unknown reminder kind.",
	CodeNotFound:                 "Not found.",
	CodeInvalidRequest:           "The request could not be understood.",
}

// UserMessage returns the message shown to people for code. Unknown codes
// fall back to a generic message.
func (c Code) UserMessage() string {
	if message, ok := userMessages[c]; ok {
		return message
	}
	return "Something went wrong."
}

// Package validate checks user input before it is sent to the API.
//
// Each form type carries go-playground/validator tags. Failures are reported
// as *Error with the sentence shown to the user, one problem at a time, in
// the order the fields appear on the form.
package validate

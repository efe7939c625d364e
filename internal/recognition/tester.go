// Package recognition verifies speech backend credentials on behalf of the
// settings surfaces. It does not transcribe anything; actual recognition
// lives in the surface processes.
package recognition

import "context"

// Credentials identifies one backend and the secrets needed to reach it.
type Credentials struct {
	Service           string
	WhisperKey        string
	AzureKey          string
	AzureRegion       string
	GoogleCredentials string
}

// Result is the outcome of a credential check, with a message suitable for
// showing directly to the user.
type Result struct {
	Success bool
	Message string
}

// Tester validates backend credentials. Implementations that contact a live
// backend are expected to honor ctx.
type Tester interface {
	Test(ctx context.Context, creds Credentials) Result
}

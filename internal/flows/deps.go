package flows

// Deps groups flow dependency sets. The root engine builds one per call and
// delegates request methods to the matching flow implementation.
type Deps struct {
	SignIn        SignInDeps
	PasswordReset PasswordResetDeps
}

package flows

import "context"

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login          LoginDeps
	Register       RegisterDeps
	Refresh        RefreshDeps
	Validate       ValidateDeps
	ChangePassword ChangePasswordDeps
	CurrentAccount CurrentAccountDeps
	Logout         LogoutDeps
}

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.ParseToken != nil
}

func (s Service) Login(ctx context.Context, email, password string) (*TokenPairResult, error) {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Register(ctx context.Context, in RegisterInput) (*TokenPairResult, error) {
	return RunRegister(ctx, in, s.deps.Register)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Validate(ctx context.Context, accessToken string) (PrincipalRecord, error) {
	return RunValidate(ctx, accessToken, s.deps.Validate)
}

func (s Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return RunChangePassword(ctx, oldPassword, newPassword, s.deps.ChangePassword)
}

func (s Service) CurrentAccount(ctx context.Context) (AccountRecord, error) {
	return RunCurrentAccount(ctx, s.deps.CurrentAccount)
}

func (s Service) Logout(ctx context.Context) {
	RunLogout(ctx, s.deps.Logout)
}

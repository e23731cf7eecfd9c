package auth

// Method identifies how a caller authenticated
type Method string

const (
	MethodFederated Method = "federated"
	MethodPAT       Method = "pat"
)

// Claim names carried by an Identity
const (
	ClaimAuthMethod = "auth_method"
	ClaimPATID      = "pat_id"
)

// Identity is the authenticated principal attached to a request
type Identity struct {
	Subject string
	Name    string
	Email   string
	Claims  map[string]string
}

// NewIdentity creates an identity marked with the given auth method
func NewIdentity(subject, name, email string, method Method) *Identity {
	return &Identity{
		Subject: subject,
		Name:    name,
		Email:   email,
		Claims:  map[string]string{ClaimAuthMethod: string(method)},
	}
}

// Claim returns a claim value, or "" when absent
func (i *Identity) Claim(key string) string {
	if i == nil || i.Claims == nil {
		return ""
	}
	return i.Claims[key]
}

// Method returns the auth method marker claim
func (i *Identity) Method() Method {
	return Method(i.Claim(ClaimAuthMethod))
}

// IsPAT reports whether the caller authenticated with a personal access token
func (i *Identity) IsPAT() bool {
	return i.Method() == MethodPAT
}

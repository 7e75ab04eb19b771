package domain

// PasswordUpdateKind makes the password field of a group update tri-state:
// leaving it out, clearing it, and setting it are three distinct intents.
type PasswordUpdateKind int

const (
	PasswordUnchanged PasswordUpdateKind = iota
	PasswordClear
	PasswordSet
)

type PasswordUpdate struct {
	Kind  PasswordUpdateKind
	Value string
}

func KeepPassword() PasswordUpdate        { return PasswordUpdate{Kind: PasswordUnchanged} }
func ClearPassword() PasswordUpdate       { return PasswordUpdate{Kind: PasswordClear} }
func SetPassword(v string) PasswordUpdate { return PasswordUpdate{Kind: PasswordSet, Value: v} }

// GroupUpdate is a partial update: nil pointer fields are left unchanged.
type GroupUpdate struct {
	Name     *string
	IsClosed *bool
	Password PasswordUpdate
}

// Empty reports whether the update would change nothing.
func (u GroupUpdate) Empty() bool {
	return u.Name == nil && u.IsClosed == nil && u.Password.Kind == PasswordUnchanged
}

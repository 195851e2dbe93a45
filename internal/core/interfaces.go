package core

// UserRepository defines storage operations for users. Create must rely on
// storage-level uniqueness constraints so concurrent registrations of the
// same username/email/phone cannot both succeed.
type UserRepository interface {
	Create(user *User) error
	GetByID(id string) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByPhone(phone string) (*User, error)
	Update(user *User) error
}

// RequestRepository defines storage operations for saved and favorite
// requests. All reads and writes are scoped to a user id.
type RequestRepository interface {
	SaveRequest(req *SavedRequest) error
	ListSaved(userID string) ([]SavedRequest, error)
	SaveFavorite(fav *FavoriteRequest) error
	ListFavorites(userID string) ([]FavoriteRequest, error)
}

// EnvironmentRepository defines storage operations for environments.
type EnvironmentRepository interface {
	Create(env *Environment) error
	ListByUser(userID string) ([]Environment, error)
}

// Cipher encrypts values at rest. Implemented by service.EncryptionService.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

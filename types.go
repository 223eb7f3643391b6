package blogit

// Blog is a stored blog link. User is populated with the owner's public
// fields when the blog was created by an authenticated user.
type Blog struct {
	ID     string   `json:"id" yaml:"id"`
	Title  string   `json:"title" yaml:"title"`
	Author string   `json:"author" yaml:"author"`
	URL    string   `json:"url" yaml:"url"`
	Likes  int      `json:"likes" yaml:"likes"`
	User   *UserRef `json:"user,omitempty" yaml:"user,omitempty"`
}

// BlogUpdate carries the fields accepted by an update. Nil fields are left
// untouched.
type BlogUpdate struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	URL    *string `json:"url"`
	Likes  *int    `json:"likes"`
}

// User is a registered account. PasswordHash never leaves the process.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Blogs        []BlogRef `json:"blogs"`
}

// UserRef is the projection of a user embedded in a blog listing.
type UserRef struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Name     string `json:"name" yaml:"name"`
}

// BlogRef is the projection of a blog embedded in a user listing.
type BlogRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// Ref returns the public projection of u.
func (u User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Username: u.Username, Name: u.Name}
}

package blogit

import "encoding/json"

// Favorite is the projection of the most liked blog. The zero value means
// there were no blogs and encodes as an empty object, even when a blog with
// empty fields and no likes would project to the same values.
type Favorite struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	Likes  int    `json:"likes" yaml:"likes"`

	found bool
}

// IsZero reports whether f is the empty-record sentinel.
func (f Favorite) IsZero() bool {
	return !f.found
}

// MarshalJSON encodes the empty-record sentinel as {}.
func (f Favorite) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte("{}"), nil
	}
	type plain Favorite
	return json.Marshal(plain(f))
}

// UnmarshalJSON treats {} as the empty-record sentinel and any object with
// fields as a found blog.
func (f *Favorite) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	type plain Favorite
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Favorite(p)
	f.found = len(fields) > 0
	return nil
}

// MarshalYAML encodes the empty-record sentinel as an empty mapping.
func (f Favorite) MarshalYAML() (interface{}, error) {
	if f.IsZero() {
		return map[string]interface{}{}, nil
	}
	type plain Favorite
	return plain(f), nil
}

// AuthorBlogs is the author with the most blog entries.
type AuthorBlogs struct {
	Author string `json:"author" yaml:"author"`
	Blogs  int    `json:"blogs" yaml:"blogs"`
}

// AuthorLikes is the author with the greatest total likes.
type AuthorLikes struct {
	Author string `json:"author" yaml:"author"`
	Likes  int    `json:"likes" yaml:"likes"`
}

// Stats bundles every aggregate over one blog list.
type Stats struct {
	Blogs        int          `json:"blogs" yaml:"blogs"`
	TotalLikes   int          `json:"totalLikes" yaml:"totalLikes"`
	FavoriteBlog Favorite     `json:"favoriteBlog" yaml:"favoriteBlog"`
	MostBlogs    *AuthorBlogs `json:"mostBlogs" yaml:"mostBlogs"`
	MostLikes    *AuthorLikes `json:"mostLikes" yaml:"mostLikes"`
}

// Dummy always returns 1.
func Dummy(blogs []Blog) int {
	return 1
}

// TotalLikes sums the likes of all blogs. An empty list sums to 0.
func TotalLikes(blogs []Blog) int {
	total := 0
	for _, b := range blogs {
		total += b.Likes
	}
	return total
}

// FavoriteBlog returns the blog with the most likes. Among equally liked
// blogs the one that appears first wins, which is what a stable descending
// sort followed by taking the head would give. Returns the zero Favorite
// when blogs is empty.
func FavoriteBlog(blogs []Blog) Favorite {
	if len(blogs) == 0 {
		return Favorite{}
	}
	best := 0
	for i := 1; i < len(blogs); i++ {
		if blogs[i].Likes > blogs[best].Likes {
			best = i
		}
	}
	b := blogs[best]
	return Favorite{Title: b.Title, Author: b.Author, Likes: b.Likes, found: true}
}

// MostBlogs returns the author with the most blogs, or nil when blogs is
// empty. Ties go to the author seen first.
func MostBlogs(blogs []Blog) *AuthorBlogs {
	tallies := tallyByAuthor(blogs)
	if len(tallies) == 0 {
		return nil
	}
	best := tallies[0]
	for _, t := range tallies[1:] {
		if t.blogs > best.blogs {
			best = t
		}
	}
	return &AuthorBlogs{Author: best.author, Blogs: best.blogs}
}

// MostLikes returns the author whose blogs have the most likes in total, or
// nil when blogs is empty. Ties go to the author seen first.
func MostLikes(blogs []Blog) *AuthorLikes {
	tallies := tallyByAuthor(blogs)
	if len(tallies) == 0 {
		return nil
	}
	best := tallies[0]
	for _, t := range tallies[1:] {
		if t.likes > best.likes {
			best = t
		}
	}
	return &AuthorLikes{Author: best.author, Likes: best.likes}
}

// Summarize computes every aggregate over blogs.
func Summarize(blogs []Blog) Stats {
	return Stats{
		Blogs:        len(blogs),
		TotalLikes:   TotalLikes(blogs),
		FavoriteBlog: FavoriteBlog(blogs),
		MostBlogs:    MostBlogs(blogs),
		MostLikes:    MostLikes(blogs),
	}
}

type authorTally struct {
	author string
	blogs  int
	likes  int
}

// tallyByAuthor counts blogs and sums likes per author. The result is in
// first-seen author order so callers can break ties deterministically.
func tallyByAuthor(blogs []Blog) []authorTally {
	index := make(map[string]int)
	var tallies []authorTally
	for _, b := range blogs {
		i, ok := index[b.Author]
		if !ok {
			i = len(tallies)
			index[b.Author] = i
			tallies = append(tallies, authorTally{author: b.Author})
		}
		tallies[i].blogs++
		tallies[i].likes += b.Likes
	}
	return tallies
}

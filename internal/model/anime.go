package model

// Anime is the catalog entry for one title
type Anime struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	TitleEnglish string   `json:"title_english,omitempty"`
	TitleNative  string   `json:"title_japanese,omitempty"`
	Type         string   `json:"type,omitempty"`   // TV, Movie, OVA...
	Status       string   `json:"status,omitempty"` // Finished Airing, Currently Airing...
	Episodes     int      `json:"episodes,omitempty"`
	Score        float64  `json:"score,omitempty"`
	Rank         int      `json:"rank,omitempty"`
	Year         int      `json:"year,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	Studios      []string `json:"studios,omitempty"`
	Synopsis     string   `json:"synopsis,omitempty"`
	URL          string   `json:"url,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
}

// DisplayTitle prefers the English title when one exists
func (a Anime) DisplayTitle() string {
	if !isBlank(a.TitleEnglish) {
		return a.TitleEnglish
	}
	return a.Title
}

// Character is the catalog entry for one character
type Character struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	NameKanji string   `json:"name_kanji,omitempty"`
	Nicknames []string `json:"nicknames,omitempty"`
	Favorites int      `json:"favorites,omitempty"`
	About     string   `json:"about,omitempty"`
	URL       string   `json:"url,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
}

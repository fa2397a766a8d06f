package catalog

import (
	"strings"

	"github.com/ppiankov/animequote/internal/model"
)

// Wire types for the catalog API. Only the fields the model carries are decoded.

type images struct {
	JPG struct {
		ImageURL string `json:"image_url"`
	} `json:"jpg"`
}

type named struct {
	Name string `json:"name"`
}

type animeData struct {
	MalID         int      `json:"mal_id"`
	URL           string   `json:"url"`
	Images        images   `json:"images"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	Type          string   `json:"type"`
	Status        string   `json:"status"`
	Episodes      int      `json:"episodes"`
	Score         float64  `json:"score"`
	Rank          int      `json:"rank"`
	Year          int      `json:"year"`
	Synopsis      string   `json:"synopsis"`
	Genres        []named  `json:"genres"`
	Studios       []named  `json:"studios"`
	Titles        []titled `json:"titles"`
}

type titled struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

type characterData struct {
	MalID     int      `json:"mal_id"`
	URL       string   `json:"url"`
	Images    images   `json:"images"`
	Name      string   `json:"name"`
	NameKanji string   `json:"name_kanji"`
	Nicknames []string `json:"nicknames"`
	Favorites int      `json:"favorites"`
	About     string   `json:"about"`
}

func (a animeData) toModel() model.Anime {
	out := model.Anime{
		ID:           a.MalID,
		Title:        a.Title,
		TitleEnglish: a.TitleEnglish,
		TitleNative:  a.TitleJapanese,
		Type:         a.Type,
		Status:       a.Status,
		Episodes:     a.Episodes,
		Score:        a.Score,
		Rank:         a.Rank,
		Year:         a.Year,
		Synopsis:     strings.TrimSpace(a.Synopsis),
		URL:          a.URL,
		ImageURL:     a.Images.JPG.ImageURL,
		Genres:       names(a.Genres),
		Studios:      names(a.Studios),
	}

	// Newer payloads only list titles under "titles"
	for _, t := range a.Titles {
		switch {
		case out.Title == "" && t.Type == "Default":
			out.Title = t.Title
		case out.TitleEnglish == "" && t.Type == "English":
			out.TitleEnglish = t.Title
		case out.TitleNative == "" && t.Type == "Japanese":
			out.TitleNative = t.Title
		}
	}
	return out
}

func (c characterData) toModel() model.Character {
	return model.Character{
		ID:        c.MalID,
		Name:      c.Name,
		NameKanji: c.NameKanji,
		Nicknames: c.Nicknames,
		Favorites: c.Favorites,
		About:     strings.TrimSpace(c.About),
		URL:       c.URL,
		ImageURL:  c.Images.JPG.ImageURL,
	}
}

func names(items []named) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, n := range items {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	return out
}

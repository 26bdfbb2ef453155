package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/musictransfer/internal/models"
)

var _ list.Item = songItem{}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Title + " " + i.song.Artist }
func (i songItem) Title() string       { return i.song.Title }
func (i songItem) Description() string {
	if i.song.Length == "" {
		return i.song.Artist
	}
	return fmt.Sprintf("%s • %s", i.song.Artist, i.song.Length)
}

func songItems(songs []models.Song) []list.Item {
	items := make([]list.Item, len(songs))
	for i, song := range songs {
		items[i] = songItem{song: song}
	}
	return items
}

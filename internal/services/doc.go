// Package services wraps the external music APIs the converter talks to.
//
// # Spotify
//
// [SpotifyService] reads public playlists with an app token obtained through the OAuth2
// client-credentials grant and the zmb3/spotify client. It resolves user input (share URL,
// spotify: URI, bare ID or a playlist name) to a playlist ID, reports a short summary and
// pages through the playlist's tracks as [models.Song] values.
//
// # YouTube
//
// [YouTubeService] calls the YouTube Data API v3 on behalf of a signed-in Google user. The
// caller supplies the authenticated transport (usually an oauth2 token source) as a client option.
//
// # Error Handling
//
// Failed API calls wrap [shared.ErrAPIRequest]; unresolvable playlist input wraps
// [shared.ErrPlaylistNotFound].
package services

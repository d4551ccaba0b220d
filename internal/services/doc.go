// Package services defines the [Source] and [Destination] interfaces the migration engine drives, and implements
// them for Spotify and YouTube Music.
//
// # Spotify
//
// [SpotifyService] is read-only. OAuth2 is handled by golang.org/x/oauth2 with a reusable token source, so expired
// access tokens are refreshed transparently; [SpotifyService.Token] exposes the current token for persisting.
// Paging through playlists, playlist items and saved tracks is done with github.com/zmb3/spotify/v2.
//
// # YouTube Music
//
// [YouTubeService] talks to the FastAPI proxy wrapping ytmusicapi. The path of the browser headers bundle is sent
// in the X-Auth-File header on every request.
//
// # Error Handling
//
// Destination failures are returned as [*APIError] values and classified with:
//   - [IsTransient] : 429, 5xx, malformed or empty bodies, and transport failures
//   - [IsRejected] : a 400 whose detail reports an invalid argument
//
// Both wrap [shared.ErrAPIRequest]. Spotify failures are returned as wrapped errors from the client library.
package services

// Package server provides the HTTP routing, middleware, and OAuth callback handling used by `ytmigrate auth spotify`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] implements it on top of
// [http.ServeMux] method patterns. [Middleware] is applied so the first one added is the outermost.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback: it validates the state parameter, exchanges the code
// through an [Exchanger] and sends the result through a channel. It only processes one callback.
//
// # Callback Server
//
// [CallbackServer] binds the host and port of the configured redirect URI (http://127.0.0.1:8888/callback by
// default), serves until one callback arrives and then shuts down.
package server

// Package reload discards results of superseded asynchronous loads.
//
// Every reload mints a token from a Guard. When the response arrives the
// loader checks the token; if a newer reload started in the meantime the
// response is dropped. The underlying request is neither cancelled nor
// retried.
package reload

import "sync/atomic"

// Guard hands out reload tokens. The zero value is ready to use and safe
// for concurrent use.
type Guard struct {
	seq atomic.Uint64
}

// Token identifies one reload.
type Token struct {
	guard *Guard
	n     uint64
}

// Begin starts a reload and invalidates every earlier token.
func (g *Guard) Begin() Token {
	return Token{guard: g, n: g.seq.Add(1)}
}

// Invalidate makes every outstanding token stale without starting a reload,
// e.g. when the owning view closes.
func (g *Guard) Invalidate() {
	g.seq.Add(1)
}

// Current reports whether no reload has started since t was issued.
func (t Token) Current() bool {
	return t.guard != nil && t.guard.seq.Load() == t.n
}

// Apply runs fn only if t is still current and reports whether it ran.
func (t Token) Apply(fn func()) bool {
	if !t.Current() {
		return false
	}
	fn()
	return true
}

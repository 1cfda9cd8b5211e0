// Package waveui is a terminal rendition of the wave portal page.
//
// The Model drives a feed controller the same way the HTML page does:
// a connect toggle, a draft textarea shown once a wallet is connected,
// a "Wave at Me" action, and the wave list in most-recent-first order.
// Controller changes arrive as tea messages, so waves appended by the
// NewWave subscription show up without any user action.
package waveui

// Package protocol implements the plaintext license command language.
//
// A request is a single UTF-8 line, one per TCP connection:
//
//	getversion
//	getusername-<key>-<mac>
//	logout-<key>-<mac>
//	<key>-<mac>
//
// The '-' character is reserved as the field separator: a license key must
// never contain it, and the bare validation form must contain exactly one.
// Responses are raw text with no trailing delimiter; the server closes the
// connection after writing, which ends the frame for the reader.
package protocol

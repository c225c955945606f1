// Package compression stores volume images as compact snapshots.
//
// A freshly formatted 20 MiB volume is almost entirely zero sectors, so the
// image is first run-length encoded and the result is then gzipped. The
// run-length scheme is the one BMP files call RLE8: a byte that occurs N >= 2
// times in a row is written twice, followed by one unsigned byte giving the
// number of additional occurrences (N - 2). A byte that occurs once is written
// as-is.
//
//	WXXXXXXXXXXXXXXXYZZ
//	W XX 13 Y ZZ 0
//
// Runs longer than 257 bytes are split, so 300 'X' bytes become `XX 255 XX 41`.
package compression

// Package layout arranges shaped glyph runs into lines and pages.
//
// Lines break only at break opportunities: after a run of whitespace, after
// U+200B ZERO WIDTH SPACE, and, mandatorily, after a newline (LF, CR, CRLF,
// NEL, U+2028 and U+2029). Lines are filled greedily. Whitespace at the end
// of a line hangs past the edge: it neither counts toward the fit nor toward
// the reported line width. A word wider than the line is placed on a line of
// its own and the line is marked overflowed; text is never truncated.
//
// Line height is taken from the font that covers the most advance width on
// the line. Lines are stacked until the page's maximum height is reached;
// further lines go to a new page when pagination is enabled, and otherwise
// the page keeps growing and is marked overflowed.
package layout

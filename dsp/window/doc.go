// Package window generates the tapering windows used for frame analysis and
// overlap-add resynthesis.
package window

// Package shaders holds reference WGSL programs written against the
// effect's binding contract. They exercise every binding but make no
// attempt at good-looking occlusion; production hosts supply their own.
package shaders

import _ "embed"

// Occlusion is the reference occlusion program (entry points vs_main and
// fs_main).
//
//go:embed occlusion.wgsl
var Occlusion string

// Blur is the reference blur program (entry points vs_main, fs_horizontal
// and fs_vertical).
//
//go:embed blur.wgsl
var Blur string

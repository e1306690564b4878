// Package model defines stable boundary types for API layers.
//
// Receipt identity (canonical bytes and CIDs) is unaffected by any
// projection. These structs are the only types intended for direct JSON
// serialization by consumers.
package model

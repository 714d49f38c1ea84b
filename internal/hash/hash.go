// Package hash derives stable content keys for run parameters.
package hash

import (
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns a hex FNV-128a key of the fully expanded Go representation of
// object. Equal values, NaN fields included, produce equal keys.
func Hash(object interface{}) string {
	h := fnv.New128a()
	printer.Fprintf(h, "%#v", object)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Short returns the first 12 hex digits of Hash, for use in file names.
func Short(object interface{}) string {
	return Hash(object)[:12]
}

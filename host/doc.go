// Package host is the reference host for yasm programs.
//
// A Kernel is a vm.CallResolver with a receiver-independent method table
// filled by core#define_method, plus primitive methods for integers,
// strings, symbols and any object.
package host

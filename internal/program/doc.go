// Package program loads traced programs written in HCL and runs them on a
// graph.
//
// A program file declares parameters, inputs, local script operators, the
// calls that connect them and the outputs to report:
//
//	param "greeting" {
//	  value      = "Hello"
//	  constraint = "A short salutation."
//	}
//
//	input "name" {
//	  type    = string
//	  default = "world"
//	}
//
//	operator "greet" {
//	  params    = ["greeting", "name"]
//	  trainable = true
//	  code      = "result = \"$${greeting}, $${name}!\""
//	}
//
//	call "message" {
//	  operator = "greet"
//	  args     = [param.greeting, input.name]
//	}
//
//	output "message" {
//	  value = call.message
//	}
//
// Call arguments are either a reference (`param.x`, `input.x`, `call.x`)
// or a constant; anything computed must go through an operator so that it
// is traced. Keyword arguments go in an `arguments` block. Calls run in
// dependency order regardless of their position in the file.
//
// Running happens in two steps. Instantiate creates the parameter nodes and
// operator instances, so saved parameters can be loaded before anything is
// traced. Run then creates the input nodes and performs the calls.
package program

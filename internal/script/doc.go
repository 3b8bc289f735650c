// Package script interprets trainable operator code.
//
// A script is an HCL native-syntax body whose first line repeats the
// operator signature as a comment:
//
//	# greet(name, punctuation)
//	upper_name = upper(name)
//	result     = "Hello, ${upper_name}${punctuation}"
//
// Attributes are evaluated in source order and each becomes a variable for
// the ones that follow. The value of `result` is the script's output. Only
// declared parameters, earlier attributes, `global.*` and registered
// functions may be referenced; everything else is rejected before any
// attribute is evaluated.
package script

// Package makemkv parses makemkvcon robot-mode output and wraps its
// read-only info invocation.
//
// The robot format is a sequence of independent lines of the shape
// PREFIX:field1,field2,...,"quoted tail". The format is not schema-validated
// and varies between MakeMKV versions, so every parsing path here is lenient:
// lines that fail to classify or split are dropped, never fatal.
package makemkv

// Package isolation implements the process-isolation transport of
// spec §4.7: a wrapper that hosts one element's internal work in a
// separate OS process, communicating over bounded FIFO queues layered
// on the worker's stdin/stdout pipes, two dedicated signal pipes
// (stop, shutdown), and a registry of mmap-backed shared-memory
// segments.
//
// There is no direct analogue for this in the teacher repo - it has
// no subprocess model, Kafka being the transport of record there -
// so this package follows the teacher's general idiom (functional
// options, sentinel errors wrapped with fmt.Errorf, scoped-resource
// Close being idempotent) rather than porting a specific file.
//
// The worker side of the boundary re-executes the same binary: a
// program calls isolation.Main() at the very top of its own main,
// before flag parsing or any other setup, so a process launched as a
// worker never reaches the parent's normal startup path.
package isolation

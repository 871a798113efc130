// Package guestwasm synthesizes wasi-threads guest modules.
//
// Every guest imports a one-page shared memory from env.memory, the
// preview1 proc_exit and fd_write functions and wasi.thread-spawn, and
// exports _start and wasi_thread_start. Build produces the guest for one
// selector case, BuildChannel the one-shot channel demo. Waits on shared
// memory are bounded and repeated so a host can stop a unit by closing
// its instance.
package guestwasm

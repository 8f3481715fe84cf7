package main

// TODO:
// - persistent Record Store (the in-memory one is reseeded on every start)
// - Profiling (Benchmarking) !! https://blog.golang.org/pprof
func main() {
	startWithDig()
}

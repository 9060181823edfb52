package core

// spin is the settle delay used by the clock tree. Tests swap it to observe
// the requested cycle counts.
var spin = spinCycles

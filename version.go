package main

// Version is set at link time with -ldflags "-X main.Version=...".
var Version = "dev"

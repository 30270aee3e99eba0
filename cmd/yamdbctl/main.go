// Command yamdbctl runs administrative tasks against the yamdb database.
package main

func main() {
	Execute()
}

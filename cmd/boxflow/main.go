// Command boxflow paginates content files into the page templates of an HTML
// document and writes the result to stdout.
package main

func main() {
	Execute()
}

// Command kefis crawls, fetches, parses, and loads Kenya's public
// fiscal and statistical documents (Treasury, Controller of Budget,
// Auditor-General, KNBS, open data portal, CRA) into a normalized
// Postgres store.
package main

func main() {
	Execute()
}

// Command oidc-server runs a standalone authorization server issuing
// client_credentials and refresh tokens for statically configured clients.
package main

func main() {
	Execute()
}

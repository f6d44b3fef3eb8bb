// cluster-tests runs integration scenarios against a hello-flask
// deployment in a Kubernetes cluster.
package main

func main() {
	Execute()
}

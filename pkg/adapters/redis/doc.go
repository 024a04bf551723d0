// Package redis broadcasts run lifecycle events over Redis pub/sub so other
// processes can follow runs without polling the API.
package redis

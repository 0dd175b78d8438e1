// Command lumen-plugin-kv is a standalone subprocess plugin that backs
// lumen's kv_get/kv_put natives with a DynamoDB table, speaking the same
// line-delimited JSON RPC protocol internal/plugin dials into.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
)

// Request/Response must match internal/plugin/plugin.go's wire types.
type Request struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

var (
	clients   = make(map[string]*dynamodb.Client)
	clientsMu sync.Mutex
)

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	encoder := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			encoder.Encode(Response{Error: fmt.Sprintf("parse error: %v", err)})
			continue
		}

		result, err := handle(req)
		resp := Response{Result: result}
		if err != nil {
			resp.Error = err.Error()
		}
		if err := encoder.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "lumen-plugin-kv: failed to encode response: %v\n", err)
		}
	}
}

func handle(req Request) (interface{}, error) {
	switch req.Method {
	case "connect":
		return handleConnect(req.Params)
	case "put":
		return handlePut(req.Params)
	case "get":
		return handleGet(req.Params)
	case "delete":
		return handleDelete(req.Params)
	default:
		return nil, fmt.Errorf("unknown method: %s", req.Method)
	}
}

func handleConnect(params []interface{}) (interface{}, error) {
	region := "us-east-1"
	if len(params) > 0 {
		if opts, ok := params[0].(map[string]interface{}); ok {
			if r, ok := opts["region"].(string); ok {
				region = r
			}
		}
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg)
	clientID := uuid.New().String()

	clientsMu.Lock()
	clients[clientID] = client
	clientsMu.Unlock()

	return clientID, nil
}

// kv item shape: {"pk": key, "v": value}. table holds exactly one
// scalar attribute alongside the partition key, reflecting lumen's
// untyped kv_get/kv_put natives rather than noxy's arbitrary item maps.
func handlePut(params []interface{}) (interface{}, error) {
	if len(params) < 3 {
		return nil, fmt.Errorf("expected client_id, table, key, value")
	}
	client, err := clientFor(params[0])
	if err != nil {
		return nil, err
	}
	table, _ := params[1].(string)
	key, _ := params[2].(string)
	var val interface{}
	if len(params) > 3 {
		val = params[3]
	}

	item, err := attributevalue.MarshalMap(map[string]interface{}{"pk": key, "v": val})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = client.PutItem(context.TODO(), &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return nil, err
	}
	return true, nil
}

func handleGet(params []interface{}) (interface{}, error) {
	if len(params) < 3 {
		return nil, fmt.Errorf("expected client_id, table, key")
	}
	client, err := clientFor(params[0])
	if err != nil {
		return nil, err
	}
	table, _ := params[1].(string)
	key, _ := params[2].(string)

	avKey, err := attributevalue.MarshalMap(map[string]interface{}{"pk": key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	out, err := client.GetItem(context.TODO(), &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       avKey,
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}

	var item struct {
		V interface{} `dynamodbav:"v"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item.V, nil
}

func handleDelete(params []interface{}) (interface{}, error) {
	if len(params) < 3 {
		return nil, fmt.Errorf("expected client_id, table, key")
	}
	client, err := clientFor(params[0])
	if err != nil {
		return nil, err
	}
	table, _ := params[1].(string)
	key, _ := params[2].(string)

	avKey, err := attributevalue.MarshalMap(map[string]interface{}{"pk": key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	_, err = client.DeleteItem(context.TODO(), &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       avKey,
	})
	if err != nil {
		return nil, err
	}
	return true, nil
}

func clientFor(p interface{}) (*dynamodb.Client, error) {
	id, _ := p.(string)
	clientsMu.Lock()
	defer clientsMu.Unlock()
	c, ok := clients[id]
	if !ok {
		return nil, fmt.Errorf("client not found: %s", id)
	}
	return c, nil
}

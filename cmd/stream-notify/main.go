// Package main implements the knowledge stream notification Lambda.
// It fans domain events out from EventBridge to the owner's connected
// WebSocket clients.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwTypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Global AWS clients for Lambda performance optimization
var dynamoClient *dynamodb.Client

// NotifyMessage represents a message to be sent to WebSocket clients
type NotifyMessage struct {
	EventType    string                 `json:"event_type"`
	TargetUserID string                 `json:"target_user_id,omitempty"`
	TargetUsers  []string               `json:"target_users,omitempty"`
	Payload      map[string]interface{} `json:"payload"`
}

// StreamMessage represents the message format sent to clients
type StreamMessage struct {
	Type      string                 `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func init() {
	// Initialize AWS SDK
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	dynamoClient = dynamodb.NewFromConfig(cfg)

	// API Gateway Management API client is initialized per request
	// as it needs the specific endpoint

	log.Println("Stream notify handler initialized")
}

func connectionsTable() string {
	if name := os.Getenv("CONNECTIONS_TABLE"); name != "" {
		return name
	}
	return "engram-connections"
}

// initializeAPIGatewayClient creates a management client for the endpoint
func initializeAPIGatewayClient(endpoint string) *apigatewaymanagementapi.Client {
	cfg, _ := awsconfig.LoadDefaultConfig(context.Background())

	return apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", endpoint))
	})
}

// connectionEndpoints holds connectionID -> endpoint pairs
type connectionEndpoints map[string]string

// getConnectionsForUser retrieves all active connections for a user
func getConnectionsForUser(ctx context.Context, userID string) (connectionEndpoints, error) {
	// Query by GSI1 (User index) - GSI1PK=USER#<userID>
	input := &dynamodb.QueryInput{
		TableName:              aws.String(connectionsTable()),
		IndexName:              aws.String("connection-id-index"),
		KeyConditionExpression: aws.String("GSI1PK = :userpk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userpk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
		},
	}

	result, err := dynamoClient.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}

	connections := make(connectionEndpoints)
	for _, item := range result.Items {
		connID, _ := item["ConnectionID"].(*types.AttributeValueMemberS)
		endpoint, _ := item["Endpoint"].(*types.AttributeValueMemberS)
		if connID != nil && endpoint != nil {
			connections[connID.Value] = endpoint.Value
		}
	}

	return connections, nil
}

// sendMessageToConnection sends a message to a specific WebSocket connection
func sendMessageToConnection(ctx context.Context, apiClient *apigatewaymanagementapi.Client,
	connectionID string, message []byte) error {

	input := &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         message,
	}

	_, err := apiClient.PostToConnection(ctx, input)
	if err != nil {
		var goneErr *apigwTypes.GoneException
		if errors.As(err, &goneErr) {
			// Connection is stale, should be removed
			log.Printf("Connection %s is gone, marking for cleanup", connectionID)
			removeStaleConnection(ctx, connectionID)
			return nil // Don't treat as error
		}
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// removeStaleConnection removes a stale connection from DynamoDB
func removeStaleConnection(ctx context.Context, connectionID string) {
	// Use composite key structure: PK=CONNECTION#<id>, SK=METADATA
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(connectionsTable()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", connectionID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	}

	_, err := dynamoClient.DeleteItem(ctx, input)
	if err != nil {
		log.Printf("Failed to remove stale connection %s: %v", connectionID, err)
	} else {
		log.Printf("Removed stale connection %s", connectionID)
	}
}

// handleNotify sends a message to the target users' connections.
// Facts are private by default, so there is deliberately no
// broadcast-to-everyone path here.
func handleNotify(ctx context.Context, msg NotifyMessage) error {
	wsMessage := StreamMessage{
		Type:      msg.EventType,
		Timestamp: time.Now().Unix(),
		Data:      msg.Payload,
	}

	messageJSON, err := json.Marshal(wsMessage)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	targetUsers := msg.TargetUsers
	if msg.TargetUserID != "" {
		targetUsers = append(targetUsers, msg.TargetUserID)
	}
	if len(targetUsers) == 0 {
		log.Printf("Event %s has no target user, dropping", msg.EventType)
		return nil
	}

	targetConnections := make(connectionEndpoints)
	for _, userID := range targetUsers {
		connections, err := getConnectionsForUser(ctx, userID)
		if err != nil {
			log.Printf("Failed to get connections for user %s: %v", userID, err)
			continue
		}
		for connID, endpoint := range connections {
			targetConnections[connID] = endpoint
		}
	}

	// Group connections by endpoint
	endpointGroups := make(map[string][]string)
	for connID, endpoint := range targetConnections {
		endpointGroups[endpoint] = append(endpointGroups[endpoint], connID)
	}

	// Send messages
	successCount := 0
	failCount := 0

	for endpoint, connectionIDs := range endpointGroups {
		apiClient := initializeAPIGatewayClient(endpoint)

		for _, connID := range connectionIDs {
			if err := sendMessageToConnection(ctx, apiClient, connID, messageJSON); err != nil {
				log.Printf("Failed to send to connection %s: %v", connID, err)
				failCount++
			} else {
				successCount++
			}
		}
	}

	log.Printf("Notify complete: %d successful, %d failed", successCount, failCount)

	if failCount > 0 && successCount == 0 {
		return fmt.Errorf("all message sends failed")
	}

	return nil
}

// ownerFromPayload extracts the owning user from an event payload
func ownerFromPayload(payload map[string]interface{}) string {
	if userID, ok := payload["owner_user_id"].(string); ok && userID != "" {
		return userID
	}
	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		return userID
	}
	return ""
}

// handler processes different event shapes for stream notification
func handler(ctx context.Context, event json.RawMessage) error {
	// Try to parse as EventBridge event (domain events)
	var bridgeEvent events.CloudWatchEvent
	if err := json.Unmarshal(event, &bridgeEvent); err == nil && bridgeEvent.DetailType != "" {
		log.Printf("Processing domain event: %s", bridgeEvent.DetailType)

		var payload map[string]interface{}
		if err := json.Unmarshal(bridgeEvent.Detail, &payload); err != nil {
			return fmt.Errorf("failed to parse event detail: %w", err)
		}

		msg := NotifyMessage{
			EventType:    bridgeEvent.DetailType,
			TargetUserID: ownerFromPayload(payload),
			Payload:      payload,
		}

		return handleNotify(ctx, msg)
	}

	// Try to parse as direct notify message
	var notifyMsg NotifyMessage
	if err := json.Unmarshal(event, &notifyMsg); err == nil && notifyMsg.EventType != "" {
		return handleNotify(ctx, notifyMsg)
	}

	// Try to parse as SQS event (for batched messages)
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(event, &sqsEvent); err == nil {
		for _, record := range sqsEvent.Records {
			var msg NotifyMessage
			if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
				log.Printf("Failed to parse SQS message: %v", err)
				continue
			}

			if err := handleNotify(ctx, msg); err != nil {
				log.Printf("Failed to notify: %v", err)
				// Continue processing other messages
			}
		}
		return nil
	}

	return fmt.Errorf("unable to parse event")
}

func main() {
	// Check if running in Lambda environment
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		log.Println("Starting stream notify Lambda")
		lambda.Start(handler)
	} else {
		// Local testing mode
		log.Println("Running in local test mode")

		testMsg := NotifyMessage{
			EventType:    "fact.written",
			TargetUserID: "test-user-456",
			Payload: map[string]interface{}{
				"fact_id":   "test-fact-123",
				"subject":   "alice",
				"predicate": "works_at",
				"object":    "acme",
			},
		}

		testJSON, _ := json.Marshal(testMsg)

		if err := handler(context.Background(), testJSON); err != nil {
			log.Fatalf("Test message processing failed: %v", err)
		}

		log.Println("Test message processed successfully")
	}
}

// Package main implements the WebSocket connection Lambda handler.
// Clients subscribe to a live stream of their own knowledge events;
// this handler authenticates the upgrade and records the connection.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"engram/pkg/auth"
)

// Global clients for Lambda performance optimization
var (
	dynamoClient *dynamodb.Client
	validator    *auth.JWTValidator
)

// Connection represents a WebSocket connection record
type Connection struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastPingAt   time.Time `json:"last_ping_at"`
	Endpoint     string    `json:"endpoint"`
	TTL          int64     `json:"ttl"`
}

func init() {
	// Initialize AWS SDK
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	dynamoClient = dynamodb.NewFromConfig(cfg)

	validator, err = auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     os.Getenv("JWT_SECRET"),
		Issuer:        "engram",
		Audience:      []string{"engram-api"},
	})
	if err != nil {
		log.Fatalf("Failed to initialize JWT validator: %v", err)
	}

	log.Println("WebSocket connect handler initialized")
}

func connectionsTable() string {
	if name := os.Getenv("CONNECTIONS_TABLE"); name != "" {
		return name
	}
	return "engram-connections"
}

// storeConnection saves the connection information to DynamoDB
func storeConnection(ctx context.Context, conn Connection) error {
	// Set TTL to 24 hours from now
	conn.TTL = time.Now().Add(24 * time.Hour).Unix()

	// Use composite key structure: PK=CONNECTION#<id>, SK=METADATA
	item := map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", conn.ConnectionID)},
		"SK":           &types.AttributeValueMemberS{Value: "METADATA"},
		"ConnectionID": &types.AttributeValueMemberS{Value: conn.ConnectionID},
		"UserID":       &types.AttributeValueMemberS{Value: conn.UserID},
		"GSI1PK":       &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", conn.UserID)},
		"GSI1SK":       &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", conn.ConnectionID)},
		"ConnectedAt":  &types.AttributeValueMemberS{Value: conn.ConnectedAt.Format(time.RFC3339)},
		"LastPingAt":   &types.AttributeValueMemberS{Value: conn.LastPingAt.Format(time.RFC3339)},
		"Endpoint":     &types.AttributeValueMemberS{Value: conn.Endpoint},
		"TTL":          &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", conn.TTL)},
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(connectionsTable()),
		Item:      item,
	}

	_, err := dynamoClient.PutItem(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to store connection: %w", err)
	}

	log.Printf("Stored connection %s for user %s", conn.ConnectionID, conn.UserID)
	return nil
}

// handler processes WebSocket connection requests
func handler(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	log.Printf("WebSocket connect request from connection: %s", request.RequestContext.ConnectionID)

	// Browsers cannot set headers on the upgrade request, so the token
	// rides in the query string
	token := request.QueryStringParameters["token"]
	if token == "" {
		if auth := request.Headers["Authorization"]; auth != "" {
			token = auth
		}
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		log.Printf("Authentication failed: %v", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusUnauthorized,
			Body:       `{"error": "unauthorized"}`,
		}, nil
	}

	// Create connection record
	connection := Connection{
		ConnectionID: request.RequestContext.ConnectionID,
		UserID:       claims.UserID,
		ConnectedAt:  time.Now(),
		LastPingAt:   time.Now(),
		Endpoint:     fmt.Sprintf("%s/%s", request.RequestContext.DomainName, request.RequestContext.Stage),
	}

	// Store connection in DynamoDB
	if err := storeConnection(ctx, connection); err != nil {
		log.Printf("Failed to store connection: %v", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error": "internal server error"}`,
		}, nil
	}

	// Send welcome message
	welcomeMsg := map[string]interface{}{
		"type":         "connection_established",
		"connectionId": connection.ConnectionID,
		"userId":       claims.UserID,
		"timestamp":    time.Now().Unix(),
		"message":      "Subscribed to knowledge stream",
	}

	welcomeJSON, _ := json.Marshal(welcomeMsg)

	log.Printf("WebSocket connection established for user %s", claims.UserID)

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(welcomeJSON),
	}, nil
}

func main() {
	// Check if running in Lambda environment
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		log.Println("Starting WebSocket connect Lambda")
		lambda.Start(handler)
	} else {
		// Local testing mode
		log.Println("Running in local test mode")

		testRequest := events.APIGatewayWebsocketProxyRequest{
			RequestContext: events.APIGatewayWebsocketProxyRequestContext{
				ConnectionID: "test-connection-123",
				DomainName:   "test.execute-api.us-east-1.amazonaws.com",
				Stage:        "dev",
			},
			QueryStringParameters: map[string]string{
				"token": os.Getenv("TEST_TOKEN"),
			},
		}

		response, err := handler(context.Background(), testRequest)
		if err != nil {
			log.Fatalf("Test request processing failed: %v", err)
		}

		log.Printf("Test response: %+v", response)
	}
}

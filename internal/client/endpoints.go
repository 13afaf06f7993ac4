package client

const (
	endpointChats    = "/api/chat"
	endpointChatByID = "/api/chat/%s"
	endpointStream   = "/api/chat"
)

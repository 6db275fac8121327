package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflows are immutable per (id, version); the graph is stored
			-- as JSONB documents since versions never change after save.
			CREATE TABLE workflows (
				id VARCHAR(255) NOT NULL,
				version INTEGER NOT NULL,
				chatbot_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (id, version)
			);

			CREATE INDEX idx_workflows_chatbot_id ON workflows(chatbot_id);
			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			-- Executions carry a revision counter for optimistic locking.
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				workflow_version INTEGER NOT NULL,
				chatbot_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				conversation_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				current_node_id VARCHAR(255) NOT NULL,
				variables JSONB NOT NULL DEFAULT '{}',
				history JSONB NOT NULL DEFAULT '[]',
				hop_count INTEGER NOT NULL DEFAULT 0,
				error JSONB,
				revision BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_executions_conversation_id ON executions(conversation_id);
			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_created_at ON executions(created_at);
		`,
	}
}

package github

import "strings"

// The project owner is aliased to "owner" so organization and user projects
// decode into the same shape. withOwner fills in the owner kind.
const ownerPlaceholder = "OWNER_KIND"

func withOwner(query string, kind OwnerType) string {
	return strings.Replace(query, ownerPlaceholder, string(kind), 1)
}

const projectItemIDsQuery = `
query ProjectItemIDs($login: String!, $number: Int!, $first: Int!, $after: String) {
  owner: OWNER_KIND(login: $login) {
    projectV2(number: $number) {
      items(first: $first, after: $after) {
        totalCount
        pageInfo { hasNextPage endCursor }
        nodes { id }
      }
    }
  }
}`

const fieldsQuery = `
query ProjectFields($login: String!, $number: Int!) {
  owner: OWNER_KIND(login: $login) {
    projectV2(number: $number) {
      id
      fields(first: 100) {
        nodes {
          __typename
          ... on ProjectV2SingleSelectField { id name options { id name } }
          ... on ProjectV2IterationField {
            id
            name
            configuration {
              iterations { id title startDate duration }
              completedIterations { id title startDate duration }
            }
          }
        }
      }
    }
  }
}`

const itemsQuery = `
fragment FieldValue on ProjectV2ItemFieldValue {
  __typename
  ... on ProjectV2ItemFieldSingleSelectValue { optionId }
  ... on ProjectV2ItemFieldIterationValue { iterationId }
}

fragment Connection on IssueConnection {
  totalCount
  pageInfo { hasNextPage endCursor }
  nodes { id }
}

query ProjectItems($ids: [ID!]!) {
  nodes(ids: $ids) {
    ... on ProjectV2Item {
      id
      databaseId
      updatedAt
      status: fieldValueByName(name: "Status") { ...FieldValue }
      iteration: fieldValueByName(name: "Iteration") { ...FieldValue }
      blocked: fieldValueByName(name: "Blocked") { ...FieldValue }
      kind: fieldValueByName(name: "Kind") { ...FieldValue }
      epic: fieldValueByName(name: "Epic") { ...FieldValue }
      workstream: fieldValueByName(name: "Workstream") { ...FieldValue }
      estimate: fieldValueByName(name: "Estimate") { ...FieldValue }
      priority: fieldValueByName(name: "Priority") { ...FieldValue }
      projectMilestone: fieldValueByName(name: "Project Milestone") { ...FieldValue }
      content {
        __typename
        ... on DraftIssue { id title updatedAt }
        ... on Issue {
          id
          title
          updatedAt
          resourcePath
          repository { nameWithOwner }
          state
          issueType { name }
          parent { id }
          subIssues(first: 50) { ...Connection }
          trackedIssues(first: 50) { ...Connection }
          assignees(first: 10) { nodes { login } }
        }
        ... on PullRequest {
          id
          title
          updatedAt
          resourcePath
          repository { nameWithOwner }
          state
          assignees(first: 10) { nodes { login } }
        }
      }
    }
  }
}`

const subIssuesQuery = `
query SubIssues($id: ID!, $first: Int!, $after: String) {
  node(id: $id) {
    ... on Issue {
      connection: subIssues(first: $first, after: $after) {
        totalCount
        pageInfo { hasNextPage endCursor }
        nodes { id }
      }
    }
  }
}`

const trackedIssuesQuery = `
query TrackedIssues($id: ID!, $first: Int!, $after: String) {
  node(id: $id) {
    ... on Issue {
      connection: trackedIssues(first: $first, after: $after) {
        totalCount
        pageInfo { hasNextPage endCursor }
        nodes { id }
      }
    }
  }
}`

const repoIssueTypesQuery = `
query RepoIssueTypes($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    issueTypes(first: 100) { nodes { id name } }
  }
}`

const addSubIssueMutation = `
mutation AddSubIssue($issueId: ID!, $subIssueId: ID!, $replaceParent: Boolean) {
  addSubIssue(input: {issueId: $issueId, subIssueId: $subIssueId, replaceParent: $replaceParent}) {
    clientMutationId
  }
}`

const addToProjectMutation = `
mutation AddToProject($projectId: ID!, $contentId: ID!) {
  addProjectV2ItemById(input: {projectId: $projectId, contentId: $contentId}) {
    item { id }
  }
}`

const setFieldValueMutation = `
mutation SetFieldValue($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
  updateProjectV2ItemFieldValue(input: {projectId: $projectId, itemId: $itemId, fieldId: $fieldId, value: $value}) {
    clientMutationId
  }
}`

const clearFieldValueMutation = `
mutation ClearFieldValue($projectId: ID!, $itemId: ID!, $fieldId: ID!) {
  clearProjectV2ItemFieldValue(input: {projectId: $projectId, itemId: $itemId, fieldId: $fieldId}) {
    clientMutationId
  }
}`

const setIssueTypeMutation = `
mutation SetIssueType($issueId: ID!, $issueTypeId: ID) {
  updateIssueIssueType(input: {issueId: $issueId, issueTypeId: $issueTypeId}) {
    issue { id }
  }
}`
